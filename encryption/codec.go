// Copyright 2026 Polisight Systems
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


// Package encryption provides AES-256-GCM encryption of chunk content
// under versioned keys. Key material is derived per version from a
// process-wide master secret, so rotating to a new version never
// invalidates records written under an old one: decryption always
// resolves by the key version stored on the record.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-crypt/x/blake2b"
)

var (
	// ErrEmptySecret indicates the master secret is missing.
	ErrEmptySecret = errors.New("master secret cannot be empty")

	// ErrInvalidVersion indicates a non-positive key version.
	ErrInvalidVersion = errors.New("key version must be greater than zero")

	// ErrCiphertextTooShort indicates a ciphertext shorter than the nonce.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// Codec encrypts and decrypts chunk content under versioned keys.
// Safe for concurrent use.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec from the master secret. Secrets longer than
// the BLAKE2b key limit are reduced to a 32-byte digest first.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if len(secret) > 64 {
		h, _ := blake2b.New(32, nil)
		h.Write(secret)
		secret = h.Sum(nil)
	}
	return &Codec{secret: secret}, nil
}

// Encrypt seals plaintext under the key for the given version.
// The random nonce is prepended to the returned ciphertext.
func (c *Codec) Encrypt(plaintext []byte, version int) ([]byte, error) {
	aead, err := c.aead(version)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt under the same version.
func (c *Codec) Decrypt(ciphertext []byte, version int) ([]byte, error) {
	aead, err := c.aead(version)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrCiphertextTooShort
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting with key version %d: %w", version, err)
	}
	return plaintext, nil
}

// aead builds the AES-256-GCM cipher for a key version.
func (c *Codec) aead(version int) (cipher.AEAD, error) {
	key, err := c.deriveKey(version)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// deriveKey derives 32 bytes of key material for a version using
// keyed BLAKE2b over the version number.
func (c *Codec) deriveKey(version int) ([]byte, error) {
	if version <= 0 {
		return nil, ErrInvalidVersion
	}

	h, err := blake2b.New(32, c.secret)
	if err != nil {
		return nil, err
	}
	h.Write([]byte("vectra-key-v" + strconv.Itoa(version)))
	return h.Sum(nil), nil
}
