// Package cryptox seals and opens small secrets (server access tokens)
// stored in the local vault. Keys are derived with argon2id from the
// machine-local secret; payloads are encrypted with AES-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// RandBytes returns n cryptographically random bytes. Panics if the OS
// random source fails, since nothing sensible can run without it.
func RandBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// Seal encrypts plaintext with AES-GCM under key. The random nonce is
// prepended to the returned ciphertext.
func Seal(plaintext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := RandBytes(aesgcm.NonceSize())
	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// Open decrypts a ciphertext produced by Seal.
func Open(ciphertext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aesgcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce, sealed := ciphertext[:aesgcm.NonceSize()], ciphertext[aesgcm.NonceSize():]
	return aesgcm.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
