package keystore

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// containerFormat is the closed set of encrypted private-key containers the
// provider understands. The format is detected from the artifact bytes, never
// assumed from configuration.
type containerFormat int

const (
	formatUnknown containerFormat = iota
	// formatEncryptedPEM is the legacy container: a traditional
	// "RSA PRIVATE KEY" PEM block with DEK-Info passphrase encryption.
	formatEncryptedPEM
	// formatPKCS12 is the modern container: a PKCS#12 bundle holding the
	// key and its certificate.
	formatPKCS12
)

func detectFormat(data []byte) containerFormat {
	if block, _ := pem.Decode(data); block != nil {
		//nolint:staticcheck // DEK-Info PEM is the legacy container this core must keep reading.
		if block.Type == "RSA PRIVATE KEY" && x509.IsEncryptedPEMBlock(block) {
			return formatEncryptedPEM
		}
		return formatUnknown
	}
	// PKCS#12 is BER/DER; every valid bundle starts with an ASN.1 SEQUENCE.
	if len(data) > 0 && data[0] == 0x30 {
		return formatPKCS12
	}
	return formatUnknown
}

func decryptContainer(data, passphrase []byte) (*rsa.PrivateKey, error) {
	switch detectFormat(data) {
	case formatEncryptedPEM:
		return decryptLegacyPEM(data, passphrase)
	case formatPKCS12:
		return decryptPKCS12(data, passphrase)
	default:
		return nil, ErrUnsupportedContainer
	}
}

func decryptLegacyPEM(data, passphrase []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	//nolint:staticcheck // see detectFormat
	der, err := x509.DecryptPEMBlock(block, passphrase)
	if err != nil {
		if errors.Is(err, x509.IncorrectPasswordError) {
			return nil, ErrWrongPassphrase
		}
		return nil, fmt.Errorf("decrypt legacy PEM: %w", err)
	}
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		// Garbage plaintext from a wrong passphrase can slip past the
		// cipher and fail here instead.
		return nil, ErrWrongPassphrase
	}
	return key, nil
}

func decryptPKCS12(data, passphrase []byte) (*rsa.PrivateKey, error) {
	priv, _, err := pkcs12.Decode(data, string(passphrase))
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, ErrWrongPassphrase
		}
		return nil, fmt.Errorf("decode PKCS#12: %w", err)
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: PKCS#12 bundle holds a non-RSA key", ErrUnsupportedContainer)
	}
	return key, nil
}

func parsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, errors.New("expected a PUBLIC KEY PEM block")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse PKIX public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return key, nil
}
