package services

import (
	"errors"
	"fmt"
	"proacademics-service/internal/models"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "proacademics-service"

type TokenService struct {
	secret []byte
	expiry time.Duration
	now    Clock
}

func NewTokenService(secret string, expiry time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	return &TokenService{
		secret: []byte(secret),
		expiry: expiry,
		now:    utcNow,
	}, nil
}

func (t *TokenService) Generate(user *models.User) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.expiry)
	claims := models.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error generate token string: %w", err)
	}
	return signed, expiresAt, nil
}

func (t *TokenService) Parse(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
