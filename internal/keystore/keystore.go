// Package keystore loads per-entity signing key material from disk. Each
// practitioner and organization has a public key artifact and a
// passphrase-encrypted private key artifact; private keys are decrypted on
// demand and never retained by the provider.
package keystore

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"petcert/pkg/domain"
)

const (
	publicKeyFile  = "public.pem"
	privateKeyFile = "private.key"
)

var (
	// ErrKeyNotFound means no artifact exists at the configured location.
	ErrKeyNotFound = errors.New("key artifact not found")
	// ErrUnsupportedContainer means an artifact exists but its container
	// format is not recognized.
	ErrUnsupportedContainer = errors.New("unsupported key container format")
	// ErrWrongPassphrase means decryption of the private key was rejected.
	ErrWrongPassphrase = errors.New("private key decryption rejected")
)

// EntityKind selects the artifact subdirectory for an entity.
type EntityKind string

const (
	KindPractitioner EntityKind = "practitioners"
	KindOrganization EntityKind = "organizations"
)

// EntityRef addresses one entity's key artifacts.
type EntityRef struct {
	Kind EntityKind
	ID   string
}

func PractitionerRef(id domain.PractitionerID) EntityRef {
	return EntityRef{Kind: KindPractitioner, ID: id.String()}
}

func OrganizationRef(id domain.OrganizationID) EntityRef {
	return EntityRef{Kind: KindOrganization, ID: id.String()}
}

// Provider resolves key artifacts under a root directory:
// <root>/<kind>/<entity id>/public.pem and <root>/<kind>/<entity id>/private.key.
type Provider struct {
	root string
}

func NewProvider(root string) *Provider {
	return &Provider{root: root}
}

// PublicKey loads and parses an entity's RSA public key.
func (p *Provider) PublicKey(ref EntityRef) (*rsa.PublicKey, error) {
	data, err := p.readArtifact(ref, publicKeyFile)
	if err != nil {
		return nil, err
	}
	key, err := parsePublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("public key for %s/%s: %w", ref.Kind, ref.ID, err)
	}
	return key, nil
}

// DecryptPrivateKey loads an entity's encrypted private key artifact, detects
// its container format and decrypts it with the supplied passphrase. The
// caller owns the returned key and must wipe it with ZeroKey when done.
func (p *Provider) DecryptPrivateKey(ref EntityRef, passphrase []byte) (*rsa.PrivateKey, error) {
	data, err := p.readArtifact(ref, privateKeyFile)
	if err != nil {
		return nil, err
	}
	key, err := decryptContainer(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("private key for %s/%s: %w", ref.Kind, ref.ID, err)
	}
	return key, nil
}

func (p *Provider) readArtifact(ref EntityRef, name string) ([]byte, error) {
	path := filepath.Join(p.root, string(ref.Kind), ref.ID, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s/%s: %w", ref.Kind, ref.ID, name, ErrKeyNotFound)
		}
		return nil, fmt.Errorf("read key artifact: %w", err)
	}
	return data, nil
}

// ZeroKey makes a best-effort wipe of the private key's secret components so
// decrypted material does not linger in memory after signing.
func ZeroKey(key *rsa.PrivateKey) {
	if key == nil {
		return
	}
	wipe := func(n *big.Int) {
		words := n.Bits()
		for i := range words {
			words[i] = 0
		}
		n.SetInt64(0)
	}
	wipe(key.D)
	for _, prime := range key.Primes {
		wipe(prime)
	}
	if key.Precomputed.Dp != nil {
		wipe(key.Precomputed.Dp)
	}
	if key.Precomputed.Dq != nil {
		wipe(key.Precomputed.Dq)
	}
	if key.Precomputed.Qinv != nil {
		wipe(key.Precomputed.Qinv)
	}
}
