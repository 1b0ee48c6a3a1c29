package store

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/arkiv/inscription-indexer/internal/config"
)

// TLSFiles locates the PEM files of an encrypted connection.
// ClientCert and ClientKey are optional but must be set together.
type TLSFiles struct {
	ServerCA   string
	ClientCert string
	ClientKey  string
}

// tlsConfig validates the server chain against ServerCA but does not check the host name.
func tlsConfig(files TLSFiles) (*tls.Config, error) {
	caPEM, err := os.ReadFile(files.ServerCA)
	if err != nil {
		return nil, &config.ConfigurationError{Msg: fmt.Sprintf("failed to read the server certificate %q", files.ServerCA), Err: err}
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(caPEM) {
		return nil, &config.ConfigurationError{Msg: fmt.Sprintf("no certificates found in %q", files.ServerCA)}
	}

	cfg := &tls.Config{
		RootCAs: roots,
		// Standard verification would also check the host name; VerifyConnection
		// checks the chain only.
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			return verifyChain(cs.PeerCertificates, roots)
		},
	}
	if files.ClientCert != "" || files.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(files.ClientCert, files.ClientKey)
		if err != nil {
			return nil, &config.ConfigurationError{
				Msg: fmt.Sprintf("failed to load the client certificate %q and key %q", files.ClientCert, files.ClientKey),
				Err: err,
			}
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

func verifyChain(certs []*x509.Certificate, roots *x509.CertPool) error {
	if len(certs) == 0 {
		return errors.New("server presented no certificate")
	}
	intermediates := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}
	_, err := certs[0].Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
	})
	return err
}
