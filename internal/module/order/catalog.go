package order

// CreditPack is a purchasable credit bundle. Prices are in the smallest
// currency unit (cents / fen).
type CreditPack struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Credits      int64  `json:"credits"`
	BonusCredits int64  `json:"bonus_credits"`
	PriceUSD     int64  `json:"price_usd"`
	PriceCNY     int64  `json:"price_cny"`
}

// packs is the static credit-pack catalog. Order creation looks packs up
// by ID, so entries must never be removed once orders reference them.
var packs = []CreditPack{
	{ID: "pack_mini", Name: "Mini", Credits: 500, BonusCredits: 0, PriceUSD: 499, PriceCNY: 3500},
	{ID: "pack_standard", Name: "Standard", Credits: 1200, BonusCredits: 100, PriceUSD: 999, PriceCNY: 7000},
	{ID: "pack_pro", Name: "Pro", Credits: 3000, BonusCredits: 400, PriceUSD: 1999, PriceCNY: 14000},
	{ID: "pack_studio", Name: "Studio", Credits: 8000, BonusCredits: 1500, PriceUSD: 4999, PriceCNY: 35000},
}

// Packs returns the credit-pack catalog.
func Packs() []CreditPack {
	out := make([]CreditPack, len(packs))
	copy(out, packs)
	return out
}

// PackByID returns the pack with the given ID.
func PackByID(id string) (*CreditPack, bool) {
	for i := range packs {
		if packs[i].ID == id {
			pack := packs[i]
			return &pack, true
		}
	}
	return nil, false
}

// Price returns the pack price for the given currency.
func (p *CreditPack) Price(currency string) (int64, bool) {
	switch currency {
	case CurrencyUSD:
		return p.PriceUSD, true
	case CurrencyCNY:
		return p.PriceCNY, true
	default:
		return 0, false
	}
}
