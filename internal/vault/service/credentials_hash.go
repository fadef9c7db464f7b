package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// CredentialsHash returns a keyed digest of the plaintext credential tuple,
// deterministic across equivalent inputs but revealing nothing about the
// secrets themselves. It lets the vault detect duplicate key uploads under a
// different label without ever decrypting stored records to compare them.
func CredentialsHash(dek []byte, apiKey, apiSecret, passphrase []byte) string {
	mac := hmac.New(sha256.New, dek)
	mac.Write(apiKey)
	mac.Write([]byte{0})
	mac.Write(apiSecret)
	mac.Write([]byte{0})
	mac.Write(passphrase)
	return hex.EncodeToString(mac.Sum(nil))
}
