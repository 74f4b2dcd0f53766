package stacks

import (
	"fmt"
	"os"
	"path/filepath"
)

// WritePrivateKey persists PEM key material with owner-only permissions.
// The material is a credential: callers must not log it.
func WritePrivateKey(path string, material []byte) error {
	if err := os.WriteFile(path, material, 0o600); err != nil {
		return fmt.Errorf("writing private key %s: %w", path, err)
	}
	return nil
}

// PEMSink returns a key material sink writing <name>.pem under dir. It
// satisfies the provider's sink contract, so a key pair generated by the
// control plane lands on disk the moment its create call returns.
func PEMSink(dir string) func(name string, material []byte) error {
	return func(name string, material []byte) error {
		return WritePrivateKey(filepath.Join(dir, name+".pem"), material)
	}
}
