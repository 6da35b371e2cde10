package cert

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSigned(t *testing.T) {
	sc, err := GenerateSelfSigned([]string{"localhost", "127.0.0.1"}, 0)
	require.NoError(t, err)

	assert.NoError(t, sc.Leaf.VerifyHostname("localhost"))
	assert.NoError(t, sc.Leaf.VerifyHostname("127.0.0.1"))
	assert.Error(t, sc.Leaf.VerifyHostname("other.test"))

	tlsCert := sc.TLSCertificate()
	require.Len(t, tlsCert.Certificate, 1)
	assert.NotNil(t, tlsCert.PrivateKey)
	assert.NotNil(t, sc.Pool())
}

func TestGenerateSelfSignedValidity(t *testing.T) {
	sc, err := GenerateSelfSigned([]string{"localhost"}, time.Hour)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(time.Hour), sc.Leaf.NotAfter, time.Minute)
}

func TestPEMRoundTrip(t *testing.T) {
	sc, err := GenerateSelfSigned([]string{"localhost"}, 0)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.pem")
	keyPath := filepath.Join(dir, "server.key")
	require.NoError(t, sc.WriteFiles(certPath, keyPath))

	leaf, err := ReadCertFile(certPath)
	require.NoError(t, err)
	assert.True(t, leaf.Equal(sc.Leaf))

	key, err := ReadKeyFile(keyPath)
	require.NoError(t, err)
	assert.True(t, key.Equal(sc.Key))
}

func TestDecodeInvalidPEM(t *testing.T) {
	_, err := DecodeCertPEM([]byte("not pem"))
	assert.ErrorIs(t, err, ErrInvalidPEM)

	_, err = DecodeKeyPEM([]byte("not pem"))
	assert.ErrorIs(t, err, ErrInvalidPEM)
}
