// Copyright 2026 The ShopStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Domain errors
var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed")
)

const (
	// gcmNonceSize is the IV length prepended to every ciphertext.
	gcmNonceSize = 12

	// aesKeySize is the derived AES-256 key length.
	aesKeySize = 32
)

// deriveKey stretches an arbitrary-length string secret into a 256-bit AES key.
// HKDF-SHA256 with a fixed info label keeps derivation deterministic so the
// same secret always yields the same key.
func deriveKey(secret string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("admin-gateway-field-encryption"))
	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return key, nil
}

// Encrypt encrypts plaintext with AES-256-GCM under a key derived from secret.
// The returned value is base64(iv || ciphertext || tag); a fresh random 12-byte
// IV is generated per call.
func Encrypt(plaintext, secret string) (string, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm init: %w", err)
	}

	iv := make([]byte, gcmNonceSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("iv generation: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(iv, sealed...)), nil
}

// Decrypt reverses Encrypt. It fails with ErrDecryptionFailed when the GCM
// authentication tag does not verify; it never returns corrupted plaintext.
func Decrypt(encoded, secret string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(raw) < gcmNonceSize+1 {
		return "", ErrInvalidCiphertext
	}

	key, err := deriveKey(secret)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm init: %w", err)
	}

	iv, sealed := raw[:gcmNonceSize], raw[gcmNonceSize:]
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// HashValue returns base64(sha256(value)). One-way; used to build equality
// lookup indexes over encrypted fields.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// GenerateSecureToken returns a hex string of length cryptographically random
// bytes.
func GenerateSecureToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random token generation: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SignHMAC returns the base64 HMAC-SHA256 signature of payload under secret.
func SignHMAC(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC recomputes the signature for payload and compares it to the
// provided signature in constant time.
func VerifyHMAC(payload, signature, secret string) bool {
	return SecureCompare(SignHMAC(payload, secret), signature)
}

// SecureCompare reports whether a == b without short-circuiting on the first
// differing byte for equal-length inputs. Unequal lengths return false.
func SecureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
