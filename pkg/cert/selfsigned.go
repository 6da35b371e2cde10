package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"
)

// DefaultValidity is the validity period for generated certificates.
const DefaultValidity = 365 * 24 * time.Hour

// SelfSigned is a freshly generated self-signed server certificate.
type SelfSigned struct {
	// Leaf is the parsed certificate.
	Leaf *x509.Certificate

	// Key is the ECDSA P-256 private key.
	Key *ecdsa.PrivateKey
}

// GenerateSelfSigned creates a self-signed ECDSA P-256 server
// certificate valid for the given hosts (DNS names or IP addresses).
// Zero validity uses DefaultValidity.
func GenerateSelfSigned(hosts []string, validity time.Duration) (*SelfSigned, error) {
	if validity <= 0 {
		validity = DefaultValidity
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "uplink self-signed"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, host := range hosts {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &SelfSigned{Leaf: leaf, Key: key}, nil
}

// TLSCertificate returns the certificate in tls.Certificate form.
func (s *SelfSigned) TLSCertificate() tls.Certificate {
	return tls.Certificate{
		Certificate: [][]byte{s.Leaf.Raw},
		PrivateKey:  s.Key,
		Leaf:        s.Leaf,
	}
}

// Pool returns a certificate pool containing only this certificate,
// suitable as tls.Config.RootCAs for clients that should trust it.
func (s *SelfSigned) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(s.Leaf)
	return pool
}

// WriteFiles writes the certificate and key as PEM files.
func (s *SelfSigned) WriteFiles(certPath, keyPath string) error {
	if err := WriteCertFile(certPath, s.Leaf); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	if err := WriteKeyFile(keyPath, s.Key); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}
	return nil
}
