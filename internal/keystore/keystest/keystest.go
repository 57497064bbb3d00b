// Package keystest provisions throwaway key artifacts for tests: it generates
// RSA pairs and writes them in both container formats the keystore reads.
package keystest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"petcert/internal/keystore"
)

// GenerateKey returns a fresh 2048-bit RSA key.
func GenerateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// ProvisionLegacy generates a key pair and writes the public key plus a
// legacy DEK-Info encrypted PEM private key under root.
func ProvisionLegacy(t *testing.T, root string, ref keystore.EntityRef, passphrase string) *rsa.PrivateKey {
	t.Helper()
	key := GenerateKey(t)
	WritePublicKey(t, root, ref, &key.PublicKey)

	//nolint:staticcheck // the keystore must keep reading legacy DEK-Info PEM.
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY",
		x509.MarshalPKCS1PrivateKey(key), []byte(passphrase), x509.PEMCipherAES256)
	require.NoError(t, err)

	writeArtifact(t, root, ref, "private.key", pem.EncodeToMemory(block))
	return key
}

// ProvisionPKCS12 generates a key pair and writes the public key plus a
// modern PKCS#12 private key bundle under root.
func ProvisionPKCS12(t *testing.T, root string, ref keystore.EntityRef, passphrase string) *rsa.PrivateKey {
	t.Helper()
	key := GenerateKey(t)
	WritePublicKey(t, root, ref, &key.PublicKey)

	cert := selfSignedCert(t, key)
	pfx, err := pkcs12.Modern.Encode(key, cert, nil, passphrase)
	require.NoError(t, err)

	writeArtifact(t, root, ref, "private.key", pfx)
	return key
}

// WritePublicKey writes a PKIX public key PEM artifact.
func WritePublicKey(t *testing.T, root string, ref keystore.EntityRef, pub *rsa.PublicKey) {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	writeArtifact(t, root, ref, "public.pem",
		pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// WriteRawPrivateArtifact writes arbitrary bytes as the private key artifact,
// for tests exercising unsupported containers.
func WriteRawPrivateArtifact(t *testing.T, root string, ref keystore.EntityRef, data []byte) {
	t.Helper()
	writeArtifact(t, root, ref, "private.key", data)
}

func selfSignedCert(t *testing.T, key *rsa.PrivateKey) *x509.Certificate {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "petcert test signer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func writeArtifact(t *testing.T, root string, ref keystore.EntityRef, name string, data []byte) {
	t.Helper()
	dir := filepath.Join(root, string(ref.Kind), ref.ID)
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
}
