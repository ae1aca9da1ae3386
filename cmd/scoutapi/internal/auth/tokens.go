package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
)

// Claims carries the actor fields inside an HS256 bearer token.
type Claims struct {
	Role  models.Role `json:"role"`
	Email string      `json:"email,omitempty"`
	Name  string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies actor tokens with a shared secret.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenService constructs a token service. now may be nil.
func NewTokenService(secret []byte, issuer string, now func() time.Time) *TokenService {
	if now == nil {
		now = time.Now
	}
	return &TokenService{secret: secret, issuer: issuer, now: now}
}

// Issue signs a token for actor that expires after ttl.
func (s *TokenService) Issue(actor Actor, ttl time.Duration) (string, error) {
	if actor.ID == "" {
		return "", errors.New("actor id is required")
	}
	if !actor.Role.Valid() {
		return "", fmt.Errorf("unknown role %q", actor.Role)
	}

	issuedAt := s.now()
	claims := Claims{
		Role:  actor.Role,
		Email: actor.Email,
		Name:  actor.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the actor it names.
func (s *TokenService) Parse(token string) (Actor, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Actor{}, apperr.Unauthorized("invalid token: %v", err)
	}

	if claims.Subject == "" || !claims.Role.Valid() {
		return Actor{}, apperr.Unauthorized("token does not name a valid actor")
	}

	return Actor{ID: claims.Subject, Role: claims.Role, Email: claims.Email, Name: claims.Name}, nil
}
