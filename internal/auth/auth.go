package auth

import (
	"errors"
	"fmt"
	"time"

	"ContestScoreAPI/internal/models/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by a bearer token. Subject holds the user ID.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Name   string
	Email  string
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs an HS256 token for the identity.
func (i *Issuer) Generate(id Identity) (string, error) {
	op := "auth.Generate"
	now := i.now()
	claims := Claims{
		Name:  id.Name,
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// Parse validates a token and returns its identity. Every failure is Unauthorized.
func (i *Issuer) Parse(raw string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, domain.Errorf(domain.KindUnauthorized, "token expired")
		}
		return Identity{}, domain.Errorf(domain.KindUnauthorized, "invalid token")
	}
	if !token.Valid {
		return Identity{}, domain.Errorf(domain.KindUnauthorized, "invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, domain.Errorf(domain.KindUnauthorized, "invalid token subject")
	}
	return Identity{UserID: userID, Name: claims.Name, Email: claims.Email}, nil
}
