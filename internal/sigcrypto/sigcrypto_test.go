package sigcrypto_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcert/internal/sigcrypto"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	payload := []byte(`{"certificate_number":"UK-GB-000123"}`)
	digest := sigcrypto.Digest(payload)

	signature, err := sigcrypto.Sign(digest, key)
	require.NoError(t, err)

	assert.True(t, sigcrypto.Verify(digest, signature, &key.PublicKey))

	t.Run("flipped payload byte fails verification", func(t *testing.T) {
		tampered := append([]byte(nil), payload...)
		tampered[0] ^= 0x01
		assert.False(t, sigcrypto.Verify(sigcrypto.Digest(tampered), signature, &key.PublicKey))
	})

	t.Run("flipped signature byte fails verification", func(t *testing.T) {
		tampered := append([]byte(nil), signature...)
		tampered[len(tampered)-1] ^= 0x01
		assert.False(t, sigcrypto.Verify(digest, tampered, &key.PublicKey))
	})

	t.Run("different public key fails verification", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		assert.False(t, sigcrypto.Verify(digest, signature, &other.PublicKey))
	})

	t.Run("malformed signature returns false not error", func(t *testing.T) {
		assert.False(t, sigcrypto.Verify(digest, []byte("garbage"), &key.PublicKey))
	})
}

func TestDigest_Deterministic(t *testing.T) {
	input := []byte("canonical payload")
	assert.Equal(t, sigcrypto.Digest(input), sigcrypto.Digest(input))
	assert.NotEqual(t, sigcrypto.Digest(input), sigcrypto.Digest([]byte("canonical payloae")))
	assert.Len(t, sigcrypto.Digest(input), 32)
}
