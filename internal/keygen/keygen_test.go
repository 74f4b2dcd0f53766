package keygen

import (
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestGenerateRSA_ProducesMatchingPair(t *testing.T) {
	pair, err := GenerateRSA(DefaultBits)
	require.NoError(t, err)

	block, rest := pem.Decode(pair.PrivateKeyPEM)
	require.NotNil(t, block)
	assert.Equal(t, "RSA PRIVATE KEY", block.Type)
	assert.Empty(t, rest)

	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, DefaultBits, priv.N.BitLen())

	// The authorized_keys line must parse and derive from the same key.
	pub, _, _, _, err := ssh.ParseAuthorizedKey(pair.AuthorizedKey)
	require.NoError(t, err)
	assert.Equal(t, "ssh-rsa", pub.Type())
	assert.True(t, strings.HasPrefix(string(pair.AuthorizedKey), "ssh-rsa "))

	derived, err := ssh.NewPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, ssh.MarshalAuthorizedKey(derived), pair.AuthorizedKey)
}

func TestGenerateRSA_RefusesWeakKeys(t *testing.T) {
	_, err := GenerateRSA(1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minimum is 2048")
}
