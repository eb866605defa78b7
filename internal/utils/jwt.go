package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const operatorSubject = "operator"

// GenerateOperatorToken issues a signed token for the console operator.
func GenerateOperatorToken(secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": operatorSubject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateOperatorToken checks the signature and the operator subject.
func ValidateOperatorToken(tokenString, secret string) error {
	if tokenString == "" {
		return errors.New("missing token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid token claims")
	}
	if sub, _ := claims["sub"].(string); sub != operatorSubject {
		return errors.New("invalid token subject")
	}
	return nil
}
