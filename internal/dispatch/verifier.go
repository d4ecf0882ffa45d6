package dispatch

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors.
var (
	ErrMissingSignature = errors.New("missing dispatch signature")
	ErrInvalidSignature = errors.New("invalid dispatch signature")
)

// Verifier authenticates inbound webhook deliveries. The dispatch service
// signs each delivery with a JWT carrying a hash of the body; keys rotate,
// so verification falls back to the next signing key when the current one
// fails.
type Verifier struct {
	currentKey string
	nextKey    string
}

// NewVerifier creates a Verifier. nextKey may be empty when no rotation is
// in progress.
func NewVerifier(currentKey, nextKey string) *Verifier {
	return &Verifier{currentKey: currentKey, nextKey: nextKey}
}

type signatureClaims struct {
	jwt.RegisteredClaims
	Body string `json:"body"`
}

// Verify checks the delivery signature against the raw request body.
func (v *Verifier) Verify(signature string, body []byte) error {
	if signature == "" {
		return ErrMissingSignature
	}

	err := v.verifyWithKey(signature, body, v.currentKey)
	if err != nil && v.nextKey != "" {
		err = v.verifyWithKey(signature, body, v.nextKey)
	}
	return err
}

func (v *Verifier) verifyWithKey(signature string, body []byte, key string) error {
	claims := &signatureClaims{}
	token, err := jwt.ParseWithClaims(signature, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(key), nil
	}, jwt.WithIssuer("Upstash"), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !token.Valid {
		return ErrInvalidSignature
	}

	sum := sha256.Sum256(body)
	bodyHash := base64.URLEncoding.EncodeToString(sum[:])
	if claims.Body != bodyHash {
		return fmt.Errorf("%w: body hash mismatch", ErrInvalidSignature)
	}

	return nil
}
