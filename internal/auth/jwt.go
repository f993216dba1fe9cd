package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/trackmate/internal/model"
)

// ErrInvalidToken is returned for session tokens that are malformed,
// expired, or signed with another key or algorithm.
var ErrInvalidToken = errors.New("invalid session token")

// ErrInvalidState is returned for OAuth state values this server did not
// issue or that have expired.
var ErrInvalidState = errors.New("invalid oauth state")

const (
	stateAudience = "oauth-state"
	stateTTL      = 10 * time.Minute
)

// Issuer signs and verifies the application's bearer tokens.
type Issuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an Issuer from cfg. Only HMAC algorithms are accepted.
func NewIssuer(cfg model.AuthConfig) (*Issuer, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("secret key must not be empty")
	}

	alg := cfg.JWTAlgorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", alg)
	}

	minutes := cfg.AccessTokenExpireMinutes
	if minutes <= 0 {
		minutes = 1440
	}

	return &Issuer{
		secret: []byte(cfg.SecretKey),
		method: method,
		ttl:    time.Duration(minutes) * time.Minute,
		now:    time.Now,
	}, nil
}

// IssueToken returns a signed token whose subject is userID.
func (i *Issuer) IssueToken(userID string) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates token and returns its subject.
func (i *Issuer) VerifyToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// IssueState returns a signed state value for the browser consent round
// trip. It carries no subject, so it is never accepted as a session token.
func (i *Issuer) IssueState() (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		ID:        NewState(),
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing state: %w", err)
	}
	return signed, nil
}

// VerifyState checks that state came from IssueState and has not expired.
func (i *Issuer) VerifyState(state string) error {
	_, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{},
		func(*jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return nil
}
