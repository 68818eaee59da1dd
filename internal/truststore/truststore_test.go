package truststore

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"

	"github.com/heysubinoy/kvgate/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cert, keypair := testutils.NewServerCertificate(t)
	want := x509.NewCertPool()
	want.AddCert(cert)

	tests := []struct {
		name string
		path string
		typ  Type
	}{
		{"jks", testutils.WriteJKS(t, testutils.TrustStorePassword, cert), Auto},
		{"pkcs12", testutils.WritePKCS12(t, testutils.TrustStorePassword, cert), Auto},
		{"pem", testutils.WritePEM(t, cert), Auto},
		{"jks key entry", testutils.WriteJKSKeyEntry(t, testutils.TrustStorePassword, keypair), Auto},
		{"explicit jks", testutils.WriteJKS(t, testutils.TrustStorePassword, cert), JKS},
		{"explicit pkcs12", testutils.WritePKCS12(t, testutils.TrustStorePassword, cert), PKCS12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := Load(tt.path, testutils.TrustStorePassword, tt.typ)
			require.NoError(t, err)
			assert.True(t, pool.Equal(want))
		})
	}
}

func TestLoad_SniffsWithoutExtension(t *testing.T) {
	cert, _ := testutils.NewServerCertificate(t)

	for name, src := range map[string]string{
		"jks":    testutils.WriteJKS(t, testutils.TrustStorePassword, cert),
		"pkcs12": testutils.WritePKCS12(t, testutils.TrustStorePassword, cert),
		"pem":    testutils.WritePEM(t, cert),
	} {
		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(src)
			require.NoError(t, err)
			path := filepath.Join(t.TempDir(), "truststore")
			require.NoError(t, os.WriteFile(path, data, 0o600))

			_, err = Load(path, testutils.TrustStorePassword, Auto)
			require.NoError(t, err)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	cert, _ := testutils.NewServerCertificate(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.jks"), "", Auto)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("wrong jks password", func(t *testing.T) {
		path := testutils.WriteJKS(t, testutils.TrustStorePassword, cert)
		_, err := Load(path, "wrong-password", Auto)
		assert.Error(t, err)
	})

	t.Run("wrong pkcs12 password", func(t *testing.T) {
		path := testutils.WritePKCS12(t, testutils.TrustStorePassword, cert)
		_, err := Load(path, "wrong-password", Auto)
		assert.Error(t, err)
	})

	t.Run("corrupt jks", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "corrupt.jks")
		require.NoError(t, os.WriteFile(path, []byte{0xfe, 0xed, 0xfe, 0xed, 0x00, 0x01}, 0o600))
		_, err := Load(path, testutils.TrustStorePassword, Auto)
		assert.Error(t, err)
	})

	t.Run("corrupt pkcs12", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "corrupt.p12")
		require.NoError(t, os.WriteFile(path, []byte("not a keystore"), 0o600))
		_, err := Load(path, testutils.TrustStorePassword, Auto)
		assert.Error(t, err)
	})

	t.Run("empty pem", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.pem")
		require.NoError(t, os.WriteFile(path, []byte("# nothing here\n"), 0o600))
		_, err := Load(path, "", Auto)
		assert.ErrorIs(t, err, ErrNoCertificates)
	})
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{
		"":       Auto,
		"auto":   Auto,
		"JKS":    JKS,
		"pkcs12": PKCS12,
		"pem":    PEM,
	} {
		got, err := ParseType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseType("jceks")
	assert.Error(t, err)
}
