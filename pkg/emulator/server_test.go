package emulator

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/ledger"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestServer_HTTP(t *testing.T) {
	device := newTestDevice(t, AutoApprover{})
	server := NewServer(device, ServerConfig{}, zaptest.NewLogger(t))
	testServer := httptest.NewServer(server.GetHandler())
	defer testServer.Close()

	encodedPath, err := ledger.EncodePath(testPath)
	require.NoError(t, err)

	t.Run("get address", func(t *testing.T) {
		body, _ := json.Marshal(&transport.APDURequest{Data: hex.EncodeToString(apdu(t, ledger.InsGetAddress, 0, 0, encodedPath))})
		resp, err := http.Post(testServer.URL+transport.APDUPath, "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var apduResp transport.APDUResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&apduResp))
		raw, err := hex.DecodeString(apduResp.Data)
		require.NoError(t, err)

		decoded, err := ledger.DecodeResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusOK, decoded.StatusCode)
		assert.Greater(t, len(decoded.Payload), ledger.PublicKeyLength)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := http.Get(testServer.URL + transport.APDUPath)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("bad hex", func(t *testing.T) {
		resp, err := http.Post(testServer.URL+transport.APDUPath, "application/json", bytes.NewBufferString(`{"data":"zz"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad json", func(t *testing.T) {
		resp, err := http.Post(testServer.URL+transport.APDUPath, "application/json", bytes.NewBufferString(`{`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_TCP(t *testing.T) {
	device := newTestDevice(t, AutoApprover{})
	server := NewServer(device, ServerConfig{ListenAddress: "127.0.0.1:0"}, zaptest.NewLogger(t))
	require.NoError(t, server.Start())
	defer func() { _ = server.Stop() }()

	require.NotEmpty(t, server.TCPAddr())
	assert.Empty(t, server.HTTPAddr())

	conn, err := net.DialTimeout("tcp", server.TCPAddr(), time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	encodedPath, err := ledger.EncodePath(testPath)
	require.NoError(t, err)

	// Several exchanges share one connection.
	exchanges := []struct {
		apdu     []byte
		expected uint16
	}{
		{apdu(t, ledger.InsGetAddress, 0, 0, encodedPath), ledger.StatusOK},
		{apdu(t, 0x7F, 0, 0, nil), ledger.StatusInsNotSupported},
		{apdu(t, ledger.InsSign, byte(ledger.ChunkInit), 0, encodedPath), ledger.StatusOK},
		{apdu(t, ledger.InsSign, byte(ledger.ChunkLast), 0, []byte("hello")), ledger.StatusOK},
	}
	for _, ex := range exchanges {
		require.NoError(t, transport.WriteRequest(conn, ex.apdu))
		raw, err := transport.ReadReply(conn)
		require.NoError(t, err)
		assert.Equal(t, ex.expected, status(t, raw))
	}
}

func TestServer_StopClosesConnections(t *testing.T) {
	device := newTestDevice(t, AutoApprover{})
	server := NewServer(device, ServerConfig{ListenAddress: "127.0.0.1:0", HTTPListenAddress: "127.0.0.1:0"}, zaptest.NewLogger(t))
	require.NoError(t, server.Start())
	require.NotEmpty(t, server.HTTPAddr())

	conn, err := net.DialTimeout("tcp", server.TCPAddr(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, server.Stop())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = transport.ReadReply(conn)
	assert.Error(t, err)
}
