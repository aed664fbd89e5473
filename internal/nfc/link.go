package nfc

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const linkIssuer = "odyssey-bank/nfc"

// LinkSigner issues and checks the token embedded in a tag's pay link.
// Links are printed onto physical tags, so they carry no expiry; revoking
// a tag deactivates it instead.
type LinkSigner struct {
	secret []byte
	now    func() time.Time
}

// NewLinkSigner constructs a LinkSigner using an HMAC secret.
func NewLinkSigner(secret string) (*LinkSigner, error) {
	if len(secret) < 16 {
		return nil, errors.New("nfc: link secret must be at least 16 bytes")
	}
	return &LinkSigner{secret: []byte(secret), now: time.Now}, nil
}

// Sign returns the token binding tagID.
func (s *LinkSigner) Sign(tagID int64) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:   linkIssuer,
		Subject:  strconv.FormatInt(tagID, 10),
		IssuedAt: jwt.NewNumericDate(s.now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks that token was issued for tagID.
func (s *LinkSigner) Verify(token string, tagID int64) error {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(linkIssuer))
	if err != nil || !parsed.Valid {
		return ErrTagNotFound
	}
	if claims.Subject != strconv.FormatInt(tagID, 10) {
		return ErrTagNotFound
	}
	return nil
}
