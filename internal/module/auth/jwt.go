package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a token fails validation.
var ErrInvalidToken = errors.New("invalid token")

const defaultExpiry = 24 * time.Hour

// Claims carries the authenticated identity. Accounts live in an external
// service; the API trusts whatever that service signed.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Tier   string    `json:"tier"`
}

// Config holds JWT configuration.
type Config struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// Manager signs and validates HS256 access tokens.
type Manager struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewManager creates a new JWT manager.
func NewManager(cfg Config) *Manager {
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "vidgo"
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate signs a token for the user. Only tests and the dev-token
// endpoint call this; production tokens come from the account service.
func (m *Manager) Generate(userID uuid.UUID, tier string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.expiry)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID: userID,
		Tier:   tier,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies a token and returns its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
