package seal

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// LoadPEM reads a signing identity from PEM files. certPath holds the signer
// certificate optionally followed by its issuers; keyPath holds a PKCS#1,
// PKCS#8 or SEC 1 private key.
func LoadPEM(certPath, keyPath string) (*Signer, error) {
	certData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	var (
		certs []*x509.Certificate
		key   crypto.Signer
	)
	for _, data := range [][]byte{certData, keyData} {
		blockCerts, blockKey, err := decodePEM(data)
		if err != nil {
			return nil, err
		}
		certs = append(certs, blockCerts...)
		if key == nil {
			key = blockKey
		}
	}
	return newSigner(certs, key)
}

// LoadPKCS12 reads a signing identity from a PKCS#12 (.p12, .pfx) file.
func LoadPKCS12(path, password string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PKCS#12 file: %w", err)
	}
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PKCS#12 file: %w", err)
	}

	var (
		certs []*x509.Certificate
		key   crypto.Signer
	)
	for _, block := range blocks {
		c, k, err := decodeBlock(block)
		if err != nil {
			return nil, err
		}
		if c != nil {
			certs = append(certs, c)
		}
		if k != nil && key == nil {
			key = k
		}
	}
	return newSigner(certs, key)
}

func decodePEM(data []byte) ([]*x509.Certificate, crypto.Signer, error) {
	var (
		certs []*x509.Certificate
		key   crypto.Signer
	)
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		c, k, err := decodeBlock(block)
		if err != nil {
			return nil, nil, err
		}
		if c != nil {
			certs = append(certs, c)
		}
		if k != nil && key == nil {
			key = k
		}
	}
	return certs, key, nil
}

func decodeBlock(block *pem.Block) (*x509.Certificate, crypto.Signer, error) {
	switch block.Type {
	case "CERTIFICATE":
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		return c, nil, nil
	case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
		k, err := parseKey(block.Bytes)
		if err != nil {
			return nil, nil, err
		}
		return nil, k, nil
	}
	return nil, nil, nil
}

func parseKey(der []byte) (crypto.Signer, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	switch k := k.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	}
	return nil, fmt.Errorf("unsupported private key type %T", k)
}

// newSigner picks the certificate matching key as the signer and keeps the
// others as its chain.
func newSigner(certs []*x509.Certificate, key crypto.Signer) (*Signer, error) {
	if key == nil {
		return nil, errors.New("no private key found")
	}
	if len(certs) == 0 {
		return nil, errors.New("no certificate found")
	}

	type equaler interface {
		Equal(crypto.PublicKey) bool
	}
	pub, ok := key.Public().(equaler)
	if !ok {
		return nil, fmt.Errorf("unsupported public key type %T", key.Public())
	}

	s := &Signer{Key: key}
	for _, c := range certs {
		if s.Certificate == nil && pub.Equal(c.PublicKey) {
			s.Certificate = c
			continue
		}
		s.Chain = append(s.Chain, c)
	}
	if s.Certificate == nil {
		return nil, errors.New("no certificate matches the private key")
	}
	return s, nil
}
