package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// ParseToken verifies an HS256 bearer token and builds the Principal from
// its uid and roles claims. Tokens are issued by the identity service; this
// is the only place claims are inspected.
func ParseToken(secret, raw string) (Principal, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Principal{}, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, ErrInvalidToken
	}

	subject := claimString(claims, "uid")
	if subject == "" {
		subject = claimString(claims, "sub")
	}
	if subject == "" {
		return Principal{}, ErrInvalidToken
	}

	return Principal{
		Subject: subject,
		Roles:   ParseRoles(claimString(claims, "roles")),
	}, nil
}

func claimString(claims jwt.MapClaims, name string) string {
	switch v := claims[name].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
