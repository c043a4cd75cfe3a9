package cwmp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Session authentication sizes.
const (
	// NonceSize is the length of client and server nonces.
	NonceSize = 16

	// SaltSize is the length of the device-issued salt.
	SaltSize = 16

	// SessionKeySize is the length of the derived session key.
	SessionKeySize = 32
)

// sessionKeyInfo binds derived keys to this protocol.
var sessionKeyInfo = []byte("tr181 session auth")

// NewNonce returns a fresh random nonce.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// NewSalt returns a fresh random salt. The device side issues one per
// authentication challenge.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveSessionKey derives the session key from the shared secret and the
// device-issued salt using HKDF-SHA256.
func DeriveSessionKey(secret, salt []byte) ([]byte, error) {
	hkdfReader := hkdf.New(sha256.New, secret, salt, sessionKeyInfo)

	key := make([]byte, SessionKeySize)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return key, nil
}

// SessionProof computes the HMAC proof over both nonces. Covering the
// client and server nonce ties the proof to this exchange.
func SessionProof(key, clientNonce, serverNonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(clientNonce)
	mac.Write(serverNonce)
	return mac.Sum(nil)
}

// VerifySessionProof checks a received proof in constant time.
func VerifySessionProof(key, clientNonce, serverNonce, proof []byte) bool {
	expected := SessionProof(key, clientNonce, serverNonce)
	return hmac.Equal(proof, expected)
}
