package gemini

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

// DefaultIdentityLifetime is how long a generated certificate stays valid.
// Long-lived reuse is expected under the trust-on-first-use model; rotating
// the certificate would break every client that pinned it.
const DefaultIdentityLifetime = 5 * 365 * 24 * time.Hour

// Identity holds the server's TLS key material: a key pair and a self-signed
// certificate. It is loaded or generated once at startup and read-only
// afterwards, so it is safe for concurrent use by every connection.
type Identity struct {
	cert tls.Certificate
	leaf *x509.Certificate
}

// LoadIdentity reads a PEM certificate/key pair from disk. It fails fast on
// unreadable or malformed material.
func LoadIdentity(certFile, keyFile string) (*Identity, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificates: %w", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	cert.Leaf = leaf
	return &Identity{cert: cert, leaf: leaf}, nil
}

// GenerateIdentity creates a new self-signed certificate for the given
// hostname. No certificate authority is involved; clients are expected to pin
// the certificate on first use. A lifetime of 0 selects
// DefaultIdentityLifetime.
func GenerateIdentity(hostname string, lifetime time.Duration) (*Identity, error) {
	if lifetime == 0 {
		lifetime = DefaultIdentityLifetime
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: hostname},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(lifetime),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	if ip := net.ParseIP(hostname); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else {
		template.DNSNames = []string{hostname}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated certificate: %w", err)
	}

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}
	return &Identity{cert: cert, leaf: leaf}, nil
}

// Certificate returns the material needed to terminate TLS.
func (id *Identity) Certificate() tls.Certificate {
	return id.cert
}

// Fingerprint returns the SHA-256 fingerprint of the identity's certificate,
// hex encoded. This is the value TOFU clients pin.
func (id *Identity) Fingerprint() string {
	return CertificateFingerprint(id.leaf)
}

// WritePEM persists the identity as a PEM certificate/key pair, so a
// generated identity stays stable across restarts. Refuses to overwrite
// existing files.
func (id *Identity) WritePEM(certFile, keyFile string) error {
	keyDER, err := x509.MarshalPKCS8PrivateKey(id.cert.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	certOut, err := os.OpenFile(certFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create certificate file: %w", err)
	}
	defer certOut.Close()
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: id.cert.Certificate[0]}); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}

	keyOut, err := os.OpenFile(keyFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		os.Remove(certFile)
		return fmt.Errorf("failed to create key file: %w", err)
	}
	defer keyOut.Close()
	if err := pem.Encode(keyOut, &pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}); err != nil {
		os.Remove(certFile)
		return fmt.Errorf("failed to write key: %w", err)
	}

	return nil
}

// CertificateFingerprint returns the SHA-256 digest of a certificate's raw
// DER bytes, hex encoded.
func CertificateFingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}
