package user

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	headerAuthorization = "Authorization"
	headerBearer        = "Bearer"
)

// User is an identity asserted by the external identity provider.
type User struct {
	ID       string `json:"userId"`
	Username string `json:"userName"`
}

type Config struct {
	// Secret is shared with the identity provider and signs HS256 tokens.
	Secret             string `mapstructure:"secret"`
	Issuer             string `mapstructure:"issuer"`
	JWTExpirationHours int    `mapstructure:"jwt_expiration_hours"`
}

type JWTClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func extractJWTFromAuthorizationHeader(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != headerBearer {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
