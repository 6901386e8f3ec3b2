package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceClaims identifies the calling service on HMAC-signed tokens.
type ServiceClaims struct {
	CallerID string `json:"callerId"`
	jwt.RegisteredClaims
}

// ValidateToken validates an HMAC-signed bearer token.
func ValidateToken(tokenString, secret string) (*ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// GenerateToken creates a signed token for a caller (useful for testing and
// provisioning service credentials).
func GenerateToken(callerID, secret string, ttl time.Duration) (string, error) {
	claims := ServiceClaims{
		CallerID: callerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "render-gateway",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
