// Package testpki builds throwaway certificate hierarchies for sealing tests.
package testpki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// KeyProfile defines the cryptographic settings for the PKI.
type KeyProfile string

const (
	RSA_2048   KeyProfile = "RSA_2048"
	ECDSA_P256 KeyProfile = "ECDSA_P256"
	ECDSA_P384 KeyProfile = "ECDSA_P384"
)

type Config struct {
	Profile         KeyProfile
	IntermediateCAs int
}

// PKI is a root CA with an optional chain of intermediates.
type PKI struct {
	T                 *testing.T
	RootKey           crypto.Signer
	RootCert          *x509.Certificate
	IntermediateKeys  []crypto.Signer
	IntermediateCerts []*x509.Certificate
	Profile           KeyProfile
}

// New creates a fresh P-256 root with one intermediate.
func New(t *testing.T) *PKI {
	return NewWithConfig(t, Config{
		Profile:         ECDSA_P256,
		IntermediateCAs: 1,
	})
}

// NewWithConfig allows detailed configuration of the PKI.
func NewWithConfig(t *testing.T, config Config) *PKI {
	t.Helper()

	rootKey := GenerateKey(t, config.Profile)
	rootTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "pdfcert Test Root CA",
			Organization: []string{"pdfcert Test Org"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SubjectKeyId:          []byte{1, 2, 3, 4},
	}
	rootCert := create(t, rootTemplate, rootTemplate, rootKey.Public(), rootKey)

	p := &PKI{T: t, RootKey: rootKey, RootCert: rootCert, Profile: config.Profile}

	parentKey, parentCert := rootKey, rootCert
	for i := 0; i < config.IntermediateCAs; i++ {
		key := GenerateKey(t, config.Profile)
		template := &x509.Certificate{
			SerialNumber: big.NewInt(int64(i + 2)),
			Subject: pkix.Name{
				CommonName:   fmt.Sprintf("pdfcert Test Intermediate CA %d", i+1),
				Organization: []string{"pdfcert Test Org"},
			},
			NotBefore:             time.Now().Add(-1 * time.Hour),
			NotAfter:              time.Now().Add(24 * time.Hour),
			KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
			BasicConstraintsValid: true,
			IsCA:                  true,
			SubjectKeyId:          []byte{5, 6, 7, 8, byte(i)},
			AuthorityKeyId:        parentCert.SubjectKeyId,
		}
		cert := create(t, template, parentCert, key.Public(), parentKey)

		p.IntermediateKeys = append(p.IntermediateKeys, key)
		p.IntermediateCerts = append(p.IntermediateCerts, cert)
		parentKey, parentCert = key, cert
	}
	return p
}

// IssueLeaf issues a document signing certificate from the last CA in the
// hierarchy.
func (p *PKI) IssueLeaf(commonName string) (crypto.Signer, *x509.Certificate) {
	p.T.Helper()

	priv := GenerateKey(p.T, p.Profile)
	serialNumber, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"pdfcert Test Org"},
		},
		NotBefore:   time.Now().Add(-1 * time.Hour),
		NotAfter:    time.Now().Add(1 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}

	issuerKey, issuerCert := p.RootKey, p.RootCert
	if n := len(p.IntermediateCerts); n > 0 {
		issuerKey, issuerCert = p.IntermediateKeys[n-1], p.IntermediateCerts[n-1]
	}
	return priv, create(p.T, template, issuerCert, priv.Public(), issuerKey)
}

// Chain returns the certificate chain for a leaf (Intermediate -> Root).
func (p *PKI) Chain() []*x509.Certificate {
	var chain []*x509.Certificate
	for i := len(p.IntermediateCerts) - 1; i >= 0; i-- {
		chain = append(chain, p.IntermediateCerts[i])
	}
	return append(chain, p.RootCert)
}

// Pool returns a pool holding only the root certificate.
func (p *PKI) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(p.RootCert)
	return pool
}

// WritePEM stores the leaf followed by the chain in cert.pem and the key in
// PKCS#8 form in key.pem, both inside dir.
func (p *PKI) WritePEM(dir string, key crypto.Signer, leaf *x509.Certificate) (certPath, keyPath string) {
	p.T.Helper()

	var certPEM []byte
	for _, c := range append([]*x509.Certificate{leaf}, p.Chain()...) {
		certPEM = append(certPEM, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})...)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		p.T.Fatalf("failed to marshal key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		p.T.Fatal(err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		p.T.Fatal(err)
	}
	return certPath, keyPath
}

func create(t *testing.T, template, parent *x509.Certificate, pub crypto.PublicKey, signer crypto.Signer) *x509.Certificate {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, signer)
	if err != nil {
		t.Fatalf("failed to create certificate %q: %v", template.Subject.CommonName, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate %q: %v", template.Subject.CommonName, err)
	}
	return cert
}

func GenerateKey(t *testing.T, profile KeyProfile) crypto.Signer {
	t.Helper()
	var (
		k   crypto.Signer
		err error
	)
	switch profile {
	case RSA_2048:
		k, err = rsa.GenerateKey(rand.Reader, 2048)
	case ECDSA_P256:
		k, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case ECDSA_P384:
		k, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	default:
		t.Fatalf("unknown key profile: %s", profile)
	}
	if err != nil {
		t.Fatalf("failed to generate %s key: %v", profile, err)
	}
	return k
}
