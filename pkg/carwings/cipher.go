package carwings

import (
	"bytes"
	"encoding/base64"

	"golang.org/x/crypto/blowfish"
)

// EncryptPassword encrypts plaintext with Blowfish in ECB mode using the
// baseprm key handed out by the initial handshake. The plaintext is PKCS#5
// padded and the ciphertext is returned base64 encoded. The output is
// deterministic for a given key and plaintext.
func EncryptPassword(key, plaintext string) (string, error) {
	if key == "" {
		return "", &Error{Kind: KindCipher, Op: "encrypt", Message: "empty key"}
	}
	c, err := blowfish.NewCipher([]byte(key))
	if err != nil {
		return "", &Error{Kind: KindCipher, Op: "encrypt", Err: err}
	}

	padded := pkcs5Pad([]byte(plaintext), blowfish.BlockSize)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += blowfish.BlockSize {
		c.Encrypt(out[i:i+blowfish.BlockSize], padded[i:i+blowfish.BlockSize])
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

func pkcs5Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}
