// Package tokengenerator issues signed bearer tokens for users.
package tokengenerator

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const TokenTypeBearer = "bearer"

// ErrSigning is returned when a token cannot be signed.
var ErrSigning = errors.New("signing error")

// Token is the issued credential as returned to clients.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Issuer mints HMAC-signed JWTs carrying only "sub" and "exp".
type Issuer struct {
	secret []byte
	method jwt.SigningMethod
	expiry time.Duration
	now    func() time.Time
}

type Option func(*Issuer)

// WithAlgorithm selects the signing algorithm by its JWT name, e.g. "HS512".
func WithAlgorithm(alg string) Option {
	return func(i *Issuer) {
		i.method = jwt.GetSigningMethod(alg)
	}
}

// WithClock overrides the time source used for "exp".
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer returns an Issuer signing with secret. HS256 is used unless
// WithAlgorithm says otherwise.
func NewIssuer(secret string, expiry time.Duration, opts ...Option) *Issuer {
	i := &Issuer{
		secret: []byte(secret),
		method: jwt.SigningMethodHS256,
		expiry: expiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Expiry returns the configured token lifetime.
func (i *Issuer) Expiry() time.Duration {
	return i.expiry
}

// Issue signs a token whose subject is the decimal user id.
func (i *Issuer) Issue(userID int64) (Token, error) {
	if i.method == nil {
		return Token{}, fmt.Errorf("%w: unknown signing algorithm", ErrSigning)
	}
	if len(i.secret) == 0 {
		return Token{}, fmt.Errorf("%w: empty signing key", ErrSigning)
	}

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(i.now().UTC().Add(i.expiry)),
	}
	ss, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		slog.Error("Failed sign JWT claims", "err", err, "alg", i.method.Alg())
		return Token{}, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return Token{AccessToken: ss, TokenType: TokenTypeBearer}, nil
}
