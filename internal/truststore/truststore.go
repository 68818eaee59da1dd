// Package truststore loads certificate trust stores used to validate the
// store server's certificate during the TLS handshake.
package truststore

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"software.sslmate.com/src/go-pkcs12"
)

// Type is the encoding of a trust store file.
type Type string

const (
	Auto   Type = "auto"
	JKS    Type = "jks"
	PKCS12 Type = "pkcs12"
	PEM    Type = "pem"
)

var (
	// ErrNoCertificates is returned when a trust store decodes successfully
	// but holds no certificates.
	ErrNoCertificates = errors.New("trust store contains no certificates")

	jksMagic = []byte{0xfe, 0xed, 0xfe, 0xed}
)

// ParseType parses a trust store type name. The empty string is Auto.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(s)); t {
	case "":
		return Auto, nil
	case Auto, JKS, PKCS12, PEM:
		return t, nil
	default:
		return "", fmt.Errorf("unknown trust store type: %s", s)
	}
}

// Load reads the trust store at path and returns a pool of the certificates
// it trusts.
func Load(path, password string, typ Type) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trust store: %w", err)
	}
	certs, err := Decode(data, password, detect(path, data, typ))
	if err != nil {
		return nil, fmt.Errorf("loading trust store %s: %w", path, err)
	}
	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}
	return pool, nil
}

// Decode decodes trust store bytes of the given type into certificates.
// Auto is resolved by sniffing the content.
func Decode(data []byte, password string, typ Type) ([]*x509.Certificate, error) {
	if typ == Auto {
		typ = sniff(data)
	}

	var (
		certs []*x509.Certificate
		err   error
	)
	switch typ {
	case JKS:
		certs, err = decodeJKS(data, password)
	case PKCS12:
		certs, err = pkcs12.DecodeTrustStore(data, password)
	case PEM:
		certs, err = decodePEM(data)
	default:
		return nil, fmt.Errorf("unknown trust store type: %s", typ)
	}
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, ErrNoCertificates
	}
	return certs, nil
}

func detect(path string, data []byte, typ Type) Type {
	if typ != Auto && typ != "" {
		return typ
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jks":
		return JKS
	case ".p12", ".pfx":
		return PKCS12
	case ".pem", ".crt", ".cer":
		return PEM
	}
	return sniff(data)
}

func sniff(data []byte) Type {
	switch {
	case bytes.HasPrefix(data, jksMagic):
		return JKS
	case bytes.Contains(data, []byte("-----BEGIN")):
		return PEM
	default:
		return PKCS12
	}
}

func decodeJKS(data []byte, password string) ([]*x509.Certificate, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return nil, err
	}

	var certs []*x509.Certificate
	for _, alias := range ks.Aliases() {
		var chain []keystore.Certificate
		switch {
		case ks.IsTrustedCertificateEntry(alias):
			entry, err := ks.GetTrustedCertificateEntry(alias)
			if err != nil {
				return nil, fmt.Errorf("reading entry %s: %w", alias, err)
			}
			chain = []keystore.Certificate{entry.Certificate}
		case ks.IsPrivateKeyEntry(alias):
			// the chain is readable without the key password
			var err error
			chain, err = ks.GetPrivateKeyEntryCertificateChain(alias)
			if err != nil {
				return nil, fmt.Errorf("reading entry %s: %w", alias, err)
			}
		default:
			continue
		}
		for _, c := range chain {
			cert, err := x509.ParseCertificate(c.Content)
			if err != nil {
				return nil, fmt.Errorf("parsing certificate %s: %w", alias, err)
			}
			certs = append(certs, cert)
		}
	}
	return certs, nil
}

func decodePEM(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	return certs, nil
}
