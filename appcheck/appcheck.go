// Package appcheck provides functionality for verifying App Check tokens.
package appcheck

import (
	"context"
	"errors"
	"strings"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"github.com/firebase/firebase-admin-go/internal"
)

const appCheckIssuer = "https://firebaseappcheck.googleapis.com/"

// jwksURL is a variable to enable testing against a local JWKS server.
var jwksURL = "https://firebaseappcheck.googleapis.com/v1/jwks"

// ErrTokenInvalid is returned when the given token is malformed, expired, or
// otherwise fails verification.
var ErrTokenInvalid = errors.New("app check token is invalid")

// DecodedToken represents a verified App Check token.
type DecodedToken struct {
	Issuer   string
	Subject  string
	Audience []string
	AppID    string
}

// Client is the interface for the Firebase App Check service.
type Client struct {
	projectID string
	jwks      *keyfunc.JWKS
}

// NewClient creates a new App Check client.
//
// This function can only be invoked from within the SDK. Client applications
// should access the App Check service through app.App.
func NewClient(ctx context.Context, c *internal.Context) (*Client, error) {
	if c.ProjectID == "" {
		return nil, errors.New("project id is required to access the app check service")
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{Ctx: ctx})
	if err != nil {
		return nil, err
	}
	return &Client{
		projectID: c.ProjectID,
		jwks:      jwks,
	}, nil
}

// VerifyToken verifies the given App Check token.
//
// VerifyToken checks the token's signature against the App Check JWKS, and
// validates its audience and issuer against the project the SDK was
// initialized for.
func (c *Client) VerifyToken(token string) (*DecodedToken, error) {
	decodedToken, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Header["alg"] != "RS256" {
			return nil, errors.New("app check token has incorrect algorithm")
		}
		return c.jwks.Keyfunc(t)
	})
	if err != nil {
		return nil, err
	}

	claims, ok := decodedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	rawAud, ok := claims["aud"].([]interface{})
	if !ok {
		return nil, errors.New("app check token has incorrect audience format")
	}
	var aud []string
	for _, v := range rawAud {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("app check token has incorrect audience format")
		}
		aud = append(aud, s)
	}
	if !contains(aud, "projects/"+c.projectID) {
		return nil, errors.New("app check token has incorrect audience")
	}

	iss, ok := claims["iss"].(string)
	if !ok || !strings.HasPrefix(iss, appCheckIssuer) {
		return nil, errors.New("app check token has incorrect issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, errors.New("app check token has empty subject")
	}

	return &DecodedToken{
		Issuer:   iss,
		Subject:  sub,
		Audience: aud,
		AppID:    sub,
	}, nil
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
