package client

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransport_PlainWithoutTLS(t *testing.T) {
	tr, err := NewTransport(TransportOptions{})
	require.NoError(t, err)
	assert.Nil(t, tr.TLSClientConfig)
}

func TestNewTransport_Errors(t *testing.T) {
	_, err := NewTransport(TransportOptions{CertFile: "only-cert.pem"})
	require.Error(t, err)

	_, err = NewTransport(TransportOptions{CAFile: filepath.Join(t.TempDir(), "missing.pem")})
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a pem"), 0o600))
	_, err = NewTransport(TransportOptions{CAFile: bad})
	require.Error(t, err)
}

func TestNewTransport_NegotiatesHTTP2WithCA(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Proto", r.Proto)
		w.WriteHeader(http.StatusNoContent)
	}))
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(caFile, pemBytes, 0o600))

	tr, err := NewTransport(TransportOptions{CAFile: caFile})
	require.NoError(t, err)
	defer tr.CloseIdleConnections()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := (&http.Client{Transport: tr}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 2, resp.ProtoMajor)
	assert.Equal(t, "HTTP/2.0", resp.Header.Get("X-Proto"))
}
