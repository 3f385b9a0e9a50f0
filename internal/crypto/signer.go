package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
)

// PEM block types for report-signing keys.
const (
	privateKeyType = "ED25519 PRIVATE KEY"
	publicKeyType  = "ED25519 PUBLIC KEY"
)

// GenerateKeys writes a fresh report-signing keypair as PEM files.
func GenerateKeys(privateKeyPath, publicKeyPath string) error {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	if err := writeKey(privateKeyPath, privateKeyType, privateKey); err != nil {
		return err
	}
	return writeKey(publicKeyPath, publicKeyType, publicKey)
}

// writeKey pem-encodes one key
func writeKey(path, keyType string, key []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	defer f.Close()

	block := &pem.Block{Type: keyType, Bytes: key}
	if err := pem.Encode(f, block); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}
	return nil
}

// loadKey reads and decodes a PEM key, checking the block type so a
// public key cannot be handed to Sign or vice versa.
func loadKey(path, wantType string) ([]byte, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	if block.Type != wantType {
		return nil, fmt.Errorf("invalid key type: expected %s, got %s", wantType, block.Type)
	}
	return block.Bytes, nil
}

// Sign produces an ed25519 signature over data, typically a
// canonicalized check report.
func Sign(data []byte, privateKeyPath string) ([]byte, error) {
	keyBytes, err := loadKey(privateKeyPath, privateKeyType)
	if err != nil {
		return nil, err
	}

	privateKey := ed25519.PrivateKey(keyBytes)
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size")
	}

	return ed25519.Sign(privateKey, data), nil
}

// Verify checks a signature against the public key at publicKeyPath.
func Verify(data []byte, signature []byte, publicKeyPath string) (bool, error) {
	keyBytes, err := loadKey(publicKeyPath, publicKeyType)
	if err != nil {
		return false, err
	}

	publicKey := ed25519.PublicKey(keyBytes)
	if len(publicKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("invalid public key size")
	}

	return ed25519.Verify(publicKey, data, signature), nil
}
