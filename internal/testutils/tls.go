// Package testutils provides helpers shared by tests across packages.
package testutils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"
)

// TrustStorePassword is the password used for generated trust stores.
const TrustStorePassword = "changeit"

// NewServerCertificate generates a self-signed certificate valid for
// localhost and 127.0.0.1, returning it both parsed and as a tls keypair.
func NewServerCertificate(t *testing.T) (*x509.Certificate, tls.Certificate) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return cert, tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        cert,
	}
}

// WriteJKS writes a Java keystore holding the certs as trusted entries.
func WriteJKS(t *testing.T, password string, certs ...*x509.Certificate) string {
	t.Helper()

	ks := keystore.New()
	for i, cert := range certs {
		err := ks.SetTrustedCertificateEntry("cert"+strconv.Itoa(i), keystore.TrustedCertificateEntry{
			CreationTime: time.Now(),
			Certificate: keystore.Certificate{
				Type:    "X509",
				Content: cert.Raw,
			},
		})
		require.NoError(t, err)
	}

	return storeJKS(t, ks, password)
}

func storeJKS(t *testing.T, ks keystore.KeyStore, password string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "truststore.jks")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, ks.Store(f, []byte(password)))
	return path
}

// WriteJKSKeyEntry writes a Java keystore holding a single private key
// entry whose chain is the keypair's certificates. The key is protected with
// the store password.
func WriteJKSKeyEntry(t *testing.T, password string, keypair tls.Certificate) string {
	t.Helper()

	key, err := x509.MarshalPKCS8PrivateKey(keypair.PrivateKey)
	require.NoError(t, err)

	chain := make([]keystore.Certificate, 0, len(keypair.Certificate))
	for _, der := range keypair.Certificate {
		chain = append(chain, keystore.Certificate{Type: "X509", Content: der})
	}

	ks := keystore.New()
	err = ks.SetPrivateKeyEntry("server", keystore.PrivateKeyEntry{
		CreationTime:     time.Now(),
		PrivateKey:       key,
		CertificateChain: chain,
	}, []byte(password))
	require.NoError(t, err)

	return storeJKS(t, ks, password)
}

// WritePKCS12 writes a PKCS#12 trust store holding the certs.
func WritePKCS12(t *testing.T, password string, certs ...*x509.Certificate) string {
	t.Helper()

	data, err := pkcs12.Modern.EncodeTrustStore(certs, password)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "truststore.p12")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// WritePEM writes the certs as a PEM bundle.
func WritePEM(t *testing.T, certs ...*x509.Certificate) string {
	t.Helper()

	var data []byte
	for _, cert := range certs {
		data = append(data, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}

	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
