/*
Copyright (c) Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenExpiration = 365 * 24 * time.Hour

	tokenIssuer  = "gpdpick"
	tokenSubject = "api"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

type ControllerToken interface {
	GenerateAccessToken(expiration time.Duration) (string, time.Time, error)
	ValidateAccessToken(tokenString string) error
}

// GenerateAccessToken signs a bearer token for the REST API. A zero
// expiration falls back to one year.
func (c *controller) GenerateAccessToken(expiration time.Duration) (string, time.Time, error) {
	if expiration == 0 {
		expiration = defaultTokenExpiration
	}

	now := time.Now()
	expiresAt := now.Add(expiration)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   tokenSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	tokenString, err := token.SignedString([]byte(c.config.Secret()))
	return tokenString, expiresAt, err
}

// ValidateAccessToken checks signature, algorithm, expiry, issuer and
// subject. Every failure maps to ErrInvalidToken.
func (c *controller) ValidateAccessToken(tokenString string) error {
	_, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			return []byte(c.config.Secret()), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(tokenSubject),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return ErrInvalidToken
	}

	return nil
}
