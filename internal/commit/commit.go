// Package commit implements the HMAC commitment the computer publishes before
// the user moves.
//
// The digest is HMAC-SHA256(key, move) rendered as uppercase hex. Once the key
// is revealed anyone can recompute it, so the committed move cannot change
// after the digest has been shown.
package commit

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const KeySize = 32

var (
	ErrEntropy   = errors.New("secure random source unavailable")
	ErrMalformed = errors.New("malformed hex input")
)

type Commitment struct {
	Key    []byte
	Move   string
	Digest string
}

// KeyHex renders the secret key for disclosure.
func (c Commitment) KeyHex() string {
	return EncodeHex(c.Key)
}

// GenerateKey returns KeySize bytes from crypto/rand.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	return key, nil
}

func Digest(key []byte, move string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(move))
	return EncodeHex(mac.Sum(nil))
}

// Commit draws a fresh key and binds it to move.
func Commit(move string) (Commitment, error) {
	key, err := GenerateKey()
	if err != nil {
		return Commitment{}, err
	}
	return New(key, move), nil
}

// New builds a commitment from a caller-supplied key.
func New(key []byte, move string) Commitment {
	return Commitment{
		Key:    append([]byte(nil), key...),
		Move:   move,
		Digest: Digest(key, move),
	}
}

// Verify recomputes the digest from a revealed key and move and compares it
// with the digest published earlier. Hex input is accepted in either case.
func Verify(keyHex, move, digestHex string) (bool, error) {
	key, err := DecodeHex(keyHex)
	if err != nil {
		return false, fmt.Errorf("key: %w", err)
	}
	want, err := DecodeHex(digestHex)
	if err != nil {
		return false, fmt.Errorf("hmac: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(move))
	return hmac.Equal(mac.Sum(nil), want), nil
}

func EncodeHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return b, nil
}
