// Package sigcrypto holds the pure cryptographic primitives of the
// certificate core: payload digesting and RSA signing/verification. Both are
// stateless; key lifecycle lives in the keystore.
package sigcrypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

// Digest computes the SHA-256 digest of the canonical payload bytes.
func Digest(canonical []byte) []byte {
	sum := sha256.Sum256(canonical)
	return sum[:]
}

// Sign produces an RSA PKCS#1 v1.5 signature over a SHA-256 digest.
func Sign(digest []byte, key *rsa.PrivateKey) ([]byte, error) {
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}
	return signature, nil
}

// Verify reports whether signature is a valid signature over digest for the
// given public key. Malformed signatures and mismatched keys return false,
// never an error.
func Verify(digest, signature []byte, pub *rsa.PublicKey) bool {
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest, signature) == nil
}
