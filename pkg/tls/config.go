package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Config holds TLS configuration parameters
type Config struct {
	CertFile string
	KeyFile  string
	// CAFile, when set, makes client certificates signed by it mandatory
	CAFile string
}

// Enabled reports whether a certificate is configured
func (c Config) Enabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// NewTLSConfig creates a server TLS configuration
func NewTLSConfig(config Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(config.CertFile, config.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load key pair: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if config.CAFile == "" {
		return tlsConfig, nil
	}

	caCert, err := os.ReadFile(config.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("no certificates found in %s", config.CAFile)
	}

	tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	tlsConfig.ClientCAs = caCertPool
	return tlsConfig, nil
}
