package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-pay/gopay"
	"github.com/go-pay/gopay/alipay"

	"github.com/vidgo/server/internal/module/order"
)

// AlipayConfig holds Alipay configuration.
type AlipayConfig struct {
	AppID      string
	PrivateKey string // RSA2 private key (PEM format)
	PublicKey  string // Alipay public key for verification (PEM format)
	IsProd     bool
	NotifyURL  string
	ReturnURL  string
}

// Alipay implements Provider using Alipay page pay.
type Alipay struct {
	client    *alipay.Client
	publicKey string
}

// NewAlipay creates a new Alipay provider.
func NewAlipay(cfg AlipayConfig) (*Alipay, error) {
	client, err := alipay.NewClient(cfg.AppID, cfg.PrivateKey, cfg.IsProd)
	if err != nil {
		return nil, fmt.Errorf("create alipay client: %w", err)
	}

	client.AutoVerifySign([]byte(cfg.PublicKey))
	client.SetNotifyUrl(cfg.NotifyURL)
	client.SetReturnUrl(cfg.ReturnURL)

	return &Alipay{client: client, publicKey: cfg.PublicKey}, nil
}

// Name returns the provider name.
func (a *Alipay) Name() string {
	return "alipay"
}

// CreatePayment creates a PC web payment and returns the redirect URL.
// Alipay bills in yuan with two decimal places, so the cent amount is
// converted on the way out.
func (a *Alipay) CreatePayment(ctx context.Context, o *order.Order) (*Payment, error) {
	subject := "VidGo credits"
	if pack, ok := order.PackByID(o.PackID); ok {
		subject = pack.Name
	}

	bm := make(gopay.BodyMap)
	bm.Set("out_trade_no", o.OrderNo)
	bm.Set("total_amount", fmt.Sprintf("%.2f", float64(o.Total)/100))
	bm.Set("subject", subject)
	bm.Set("timeout_express", "30m")
	bm.Set("product_code", "FAST_INSTANT_TRADE_PAY")

	payURL, err := a.client.TradePagePay(ctx, bm)
	if err != nil {
		return nil, fmt.Errorf("create page payment: %w", err)
	}

	return &Payment{
		Provider: a.Name(),
		PayURL:   payURL,
		Amount:   o.Total,
		Currency: o.Currency,
	}, nil
}

// HandleNotify parses and verifies the async notification. Notifications
// for trades still waiting on the buyer carry no order number so the
// caller acks them without touching the order.
func (a *Alipay) HandleNotify(ctx context.Context, r *http.Request) (*NotifyResult, error) {
	notifyReq, err := alipay.ParseNotifyToBodyMap(r)
	if err != nil {
		return nil, fmt.Errorf("parse notify: %w", err)
	}

	ok, err := alipay.VerifySign(a.publicKey, notifyReq)
	if err != nil {
		return nil, fmt.Errorf("verify signature: %w", err)
	}
	if !ok {
		return nil, errors.New("invalid notify signature")
	}

	// total_amount is a yuan decimal string; rounding absorbs the float
	// error so "99.99" comes back as 9999 cents, not 9998.
	amount, _ := strconv.ParseFloat(notifyReq.Get("total_amount"), 64)

	result := &NotifyResult{
		EventID: notifyReq.Get("notify_id"),
		TradeNo: notifyReq.Get("trade_no"),
		Amount:  int64(math.Round(amount * 100)),
		Ack:     "success", // Alipay expects the literal text "success"
	}

	switch notifyReq.Get("trade_status") {
	case "TRADE_SUCCESS", "TRADE_FINISHED":
		result.OrderNo = notifyReq.Get("out_trade_no")
		result.Succeeded = true
	case "TRADE_CLOSED":
		result.OrderNo = notifyReq.Get("out_trade_no")
		result.FailureCode = "trade_closed"
		result.FailureMessage = "trade closed before payment completed"
	default:
		// WAIT_BUYER_PAY and the like: nothing to record yet.
	}

	return result, nil
}
