package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wastevision-service/internal/domain/account"
)

// ErrUnauthorized is the only error Verify returns.
var ErrUnauthorized = errors.New("invalid authentication credentials")

const DefaultTTL = 24 * time.Hour

// TokenManager issues and verifies stateless signed tokens whose subject is
// the user's email.
type TokenManager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	users  account.UserStore
	now    func() time.Time
}

func NewTokenManager(secret, algorithm string, ttl time.Duration, users account.UserStore) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		users:  users,
		now:    time.Now,
	}, nil
}

// Issue signs a copy of claims with an exp of now+ttl. A non-positive ttl
// uses the manager default.
func (m *TokenManager) Issue(claims map[string]any, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.ttl
	}
	payload := jwt.MapClaims{}
	for k, v := range claims {
		payload[k] = v
	}
	payload["exp"] = jwt.NewNumericDate(m.now().Add(ttl))

	signed, err := jwt.NewWithClaims(m.method, payload).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Subject validates signature and expiry and returns the sub claim.
func (m *TokenManager) Subject(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrUnauthorized
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrUnauthorized
	}
	return sub, nil
}

// Verify resolves a token to the ID of the user named by its subject.
func (m *TokenManager) Verify(ctx context.Context, token string) (string, error) {
	sub, err := m.Subject(token)
	if err != nil {
		return "", err
	}
	user, err := m.users.GetByEmail(ctx, sub)
	if err != nil {
		return "", ErrUnauthorized
	}
	return user.ID.String(), nil
}
