package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-i2p/go-rns/lib/announce/announcetest"
	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/config"
	"github.com/go-i2p/go-rns/lib/hdlc"
	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/go-i2p/go-rns/lib/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *transport.Transport) {
	t.Helper()
	tr, err := transport.New(transport.Config{Identity: announcetest.NewIdentity(t)})
	require.NoError(t, err)
	s, err := NewServer(&config.ControlConfig{Enabled: true, Address: "127.0.0.1:0"}, tr)
	require.NoError(t, err)
	return s, tr
}

func get(t *testing.T, s *Server, path string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestNewServerRequiresProvider(t *testing.T) {
	_, err := NewServer(&config.ControlConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoProvider)
	_, err = NewServer(nil, nil)
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	s, tr := newTestServer(t)
	tr.FeedBytes("tcp0", hdlc.Frame(announcetest.NodeAnnounce(t)))
	tr.FeedBytes("tcp0", hdlc.Frame([]byte("this frame is too short?")))

	var status StatusResponse
	require.Equal(t, http.StatusOK, get(t, s, "/status", &status))

	assert.Equal(t, tr.Identity().HexHash(), status.Identity)
	assert.Equal(t, 1, status.KnownDestinations)
	assert.EqualValues(t, 1, status.Stats.AnnouncesAccepted)
	assert.EqualValues(t, 2, status.Stats.PacketsReceived)
	require.Len(t, status.Interfaces, 1)
	assert.Equal(t, "tcp0", status.Interfaces[0].Name)
	assert.EqualValues(t, 2, status.Interfaces[0].Frames)
	assert.Empty(t, status.Interfaces[0].Parent)
}

func TestDestinations(t *testing.T) {
	s, tr := newTestServer(t)

	var empty []DestinationInfo
	require.Equal(t, http.StatusOK, get(t, s, "/destinations", &empty))
	assert.Empty(t, empty)

	tr.FeedBytes("tcp0", hdlc.Frame(announcetest.NodeAnnounce(t)))

	var list []DestinationInfo
	require.Equal(t, http.StatusOK, get(t, s, "/destinations", &list))
	require.Len(t, list, 1)
	assert.Equal(t, announcetest.NodeDestination, list[0].Hash)
	assert.Equal(t, announcetest.NodeIdentity, list[0].Identity)
	assert.Equal(t, announcetest.NodePacketHash, list[0].PacketHash)
	assert.Equal(t, fmt.Sprintf("%x", announcetest.NodeAppData), list[0].AppData)
	assert.Equal(t, announcetest.NodeAppData, list[0].AppDataText)
}

func TestDestinationLookup(t *testing.T) {
	s, tr := newTestServer(t)
	tr.FeedBytes("tcp0", hdlc.Frame(announcetest.NodeAnnounce(t)))

	var info DestinationInfo
	require.Equal(t, http.StatusOK, get(t, s, "/destinations/"+announcetest.NodeDestination, &info))
	assert.Equal(t, announcetest.NodeIdentity, info.Identity)

	tests := []struct {
		name string
		hash string
		code int
		msg  string
	}{
		{"unknown", "00000000000000000000000000000000", http.StatusNotFound, "unknown destination"},
		{"not hex", "zz", http.StatusBadRequest, "invalid destination hash"},
		{"wrong length", "234eed3d", http.StatusBadRequest, "invalid destination hash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			assert.Equal(t, tt.code, get(t, s, "/destinations/"+tt.hash, &resp))
			assert.Equal(t, tt.msg, resp.Error)
		})
	}
}

type switchable struct {
	enabled bool
}

func (h *switchable) AspectFilter() string       { return "lxmf.delivery" }
func (h *switchable) ReceivePathResponses() bool { return true }
func (h *switchable) Enabled() bool              { return h.enabled }

func (h *switchable) ReceivedAnnounce(data.Hash, *identity.Identity, []byte, []byte, bool) error {
	return nil
}

func TestHandlers(t *testing.T) {
	s, tr := newTestServer(t)
	require.True(t, tr.RegisterAnnounceHandler(transport.NewAnnounceHandler("nomadnetwork.node", false,
		func(data.Hash, *identity.Identity, []byte, []byte, bool) error { return nil })))
	require.True(t, tr.RegisterAnnounceHandler(&switchable{}))

	var handlers []HandlerInfo
	require.Equal(t, http.StatusOK, get(t, s, "/handlers", &handlers))
	assert.Equal(t, []HandlerInfo{
		{AspectFilter: "nomadnetwork.node", PathResponses: false, Enabled: true},
		{AspectFilter: "lxmf.delivery", PathResponses: true, Enabled: false},
	}, handlers)
}

func TestStartAndStop(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Nil(t, s.Addr())
	require.NoError(t, s.Start())
	require.NotNil(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr().String() + "/status")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "known_destinations")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	_, err = http.Get("http://" + s.Addr().String() + "/status")
	assert.Error(t, err)
}

func TestDisabledServerDoesNotListen(t *testing.T) {
	tr, err := transport.New(transport.Config{Identity: announcetest.NewIdentity(t)})
	require.NoError(t, err)
	s, err := NewServer(&config.ControlConfig{Address: "127.0.0.1:0"}, tr)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Nil(t, s.Addr())
	assert.NoError(t, s.Stop(context.Background()))
}
