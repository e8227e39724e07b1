// Package auth issues and verifies the company-scoped bearer tokens that
// guard the HTTP API.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/ride-engine/generic"
)

// AllCompanies grants access to every company (operator tokens).
const AllCompanies = "*"

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	CompanyID string `json:"cid"`
	jwt.RegisteredClaims
}

// Allows reports whether the token may act on the company.
func (c *Claims) Allows(companyID generic.CompanyID) bool {
	return c.CompanyID == AllCompanies || c.CompanyID == string(companyID)
}

// GenerateToken signs an HS256 token for subject scoped to companyID.
func GenerateToken(secret, subject, companyID string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies signature and expiry and returns the claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.CompanyID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
