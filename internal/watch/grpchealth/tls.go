package grpchealth

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"strings"

	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// TLSConfig carries the CLI-supplied TLS material for a watch target.
type TLSConfig struct {
	Mode       TLSMode
	CAPath     string
	CertPath   string
	KeyPath    string
	DomainName string
}

// Credentials builds transport credentials for mode, reading PEM files from
// disk and deriving the verification domain from the endpoint host when
// DomainName is not supplied.
func (c TLSConfig) Credentials(endpoint string) (credentials.TransportCredentials, error) {
	if c.Mode == TLSOff {
		return insecure.NewCredentials(), nil
	}

	if c.CAPath == "" {
		return nil, fmt.Errorf("grpc-ca is required for tls mode %q", c.Mode)
	}
	caPEM, err := os.ReadFile(c.CAPath)
	if err != nil {
		return nil, fmt.Errorf("read grpc-ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("grpc-ca %s contains no usable certificates", c.CAPath)
	}

	domain := c.DomainName
	if domain == "" {
		domain = hostOf(endpoint)
	}

	tlsCfg := &tls.Config{
		RootCAs:    pool,
		ServerName: domain,
	}

	if c.Mode == TLSMut {
		if c.CertPath == "" || c.KeyPath == "" {
			return nil, fmt.Errorf("grpc-cert and grpc-key are required for mtls mode")
		}
		cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("load client cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	return credentials.NewTLS(tlsCfg), nil
}

func hostOf(endpoint string) string {
	e := endpoint
	if !strings.Contains(e, "://") {
		e = "http://" + e
	}
	u, err := url.Parse(e)
	if err != nil {
		return endpoint
	}
	return u.Hostname()
}
