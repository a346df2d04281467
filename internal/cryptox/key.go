package cryptox

import "golang.org/x/crypto/argon2"

// DeriveKey stretches the machine-local secret into a 256-bit AES key.
// Parameters follow the argon2id recommendations for interactive use.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}
