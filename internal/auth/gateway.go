// Package auth issues and verifies bearer tokens and hashes account passwords.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenValidity is the fixed lifetime of an issued token. There is no refresh.
	TokenValidity = 7 * 24 * time.Hour

	// BcryptCost is the work factor used for password hashes
	BcryptCost = 10
)

var ErrMissingSecret = errors.New("token signing secret is not configured")

// Claims embeds the standard claims plus the caller's user id
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// Gateway issues and resolves tokens and handles password hashes
type Gateway struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time

	// compared against when the account does not exist
	dummyHash []byte
}

// NewGateway returns a Gateway signing with secret. An empty secret is an error.
func NewGateway(secret string) (*Gateway, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), BcryptCost)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		secret:    []byte(secret),
		validity:  TokenValidity,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// IssueToken returns a signed HS256 token for userID
func (g *Gateway) IssueToken(userID string) (string, error) {
	now := g.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.validity)),
		},
		UserID: userID,
	})

	return token.SignedString(g.secret)
}

// ResolveCaller returns the user id embedded in a valid token.
// Malformed, expired, foreign-key and non-HMAC tokens all yield ok=false.
func (g *Gateway) ResolveCaller(tokenString string) (string, bool) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", false
	}

	return claims.UserID, true
}

// HashSecret returns the bcrypt hash of plaintext
func (g *Gateway) HashSecret(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret reports whether plaintext matches hash
func (g *Gateway) VerifySecret(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// BurnVerify spends the same bcrypt work as VerifySecret for unknown accounts
func (g *Gateway) BurnVerify(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(g.dummyHash, []byte(plaintext))
}
