// Package keygen generates RSA key pairs for SSH access to compute
// instances. The private key is PEM-encoded and must be treated as a
// credential: write it with mode 0600 and never log it.
package keygen

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// DefaultBits matches the control plane's own key strength for generated
// SSH key pairs.
const DefaultBits = 2048

// KeyPair holds a PEM-encoded private key and the matching public key in
// OpenSSH authorized_keys format.
type KeyPair struct {
	PrivateKeyPEM []byte
	AuthorizedKey []byte
}

// GenerateRSA creates a new RSA key pair of the given strength.
func GenerateRSA(bits int) (*KeyPair, error) {
	if bits < DefaultBits {
		return nil, fmt.Errorf("refusing to generate a %d-bit key, minimum is %d", bits, DefaultBits)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}
	if err := privateKey.Validate(); err != nil {
		return nil, fmt.Errorf("validating RSA key: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	publicKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("deriving SSH public key: %w", err)
	}

	return &KeyPair{
		PrivateKeyPEM: privPEM,
		AuthorizedKey: ssh.MarshalAuthorizedKey(publicKey),
	}, nil
}
