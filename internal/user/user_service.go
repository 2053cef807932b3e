package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
)

var (
	ErrMissingSecret = errors.New("jwt secret is required")
	ErrInvalidToken  = errors.New("invalid token")
)

type UserService struct {
	config  Config
	secret  []byte
	timeNow func() time.Time
}

func NewUserService(config Config) (*UserService, error) {
	if config.Secret == "" {
		return nil, ErrMissingSecret
	}
	if config.JWTExpirationHours <= 0 {
		config.JWTExpirationHours = 24
	}
	return &UserService{
		config:  config,
		secret:  []byte(config.Secret),
		timeNow: time.Now,
	}, nil
}

func (us *UserService) ValidateJWTFromRequest(ctx *fasthttp.RequestCtx) (*User, error) {
	authHeader := ctx.Request.Header.Peek(headerAuthorization)
	if authHeader == nil {
		return nil, fmt.Errorf("missing authorization header")
	}

	tokenString, err := extractJWTFromAuthorizationHeader(string(authHeader))
	if err != nil {
		return nil, fmt.Errorf("invalid authorization header: %w", err)
	}

	return us.ValidateJWT(tokenString)
}

// GenerateJWT issues a token the way the identity provider does. The server
// itself only validates tokens; issuing is used by tooling and tests.
func (us *UserService) GenerateJWT(user *User) (string, int64, error) {
	now := us.timeNow()
	expiresAt := now.Add(time.Duration(us.config.JWTExpirationHours) * time.Hour)

	claims := JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    us.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(us.secret)
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresAt.Unix(), nil
}

func (us *UserService) ValidateJWT(tokenString string) (*User, error) {
	claims, err := us.parseJWT(tokenString)
	if err != nil {
		return nil, err
	}
	return &User{ID: claims.UserID, Username: claims.Username}, nil
}

func (us *UserService) parseJWT(tokenString string) (*JWTClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(us.timeNow),
	}
	if us.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(us.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return us.secret, nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	return claims, nil
}
