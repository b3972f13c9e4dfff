package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"turbotransfer/config"
	"turbotransfer/handlers"
	"turbotransfer/models"
	"turbotransfer/services/analytics"
	"turbotransfer/services/clipboard"
	"turbotransfer/services/host"
	"turbotransfer/services/janitor"
	"turbotransfer/services/paths"
	"turbotransfer/services/session"
	"turbotransfer/services/thumbnail"
	"turbotransfer/services/transfer"
	"turbotransfer/utils"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	lanAddr  = "192.168.1.50:40000"
	hostAddr = "127.0.0.1:40000"
)

type server struct {
	t        *testing.T
	router   *gin.Engine
	registry *session.DefaultRegistry
	settings *config.Settings
	commands []string
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	base := t.TempDir()
	logger := zaptest.NewLogger(t)

	settings := config.NewSettings(config.Config{SavePath: filepath.Join(base, "received"), SafetyFilter: true})
	resolver := paths.NewResolver(settings, filepath.Join(base, "sessions"), filepath.Join(base, "bundles"))
	registry := session.NewRegistry(session.Options{Logger: logger})
	thumbs := thumbnail.NewThumbnailService(filepath.Join(base, ".thumbnails"), logger)
	stats := &analytics.DefaultAnalyticsService{Store: analytics.NewFileStore(filepath.Join(base, ".metadata", "history.json"))}
	engine := transfer.NewEngine(transfer.Options{
		Resolver:   resolver,
		Sessions:   registry,
		Policy:     settings,
		Analytics:  stats,
		Thumbnails: thumbs,
		Logger:     logger,
	})
	registry.OnRemove(engine.HandleSessionRemoved)

	s := &server{t: t, registry: registry, settings: settings}
	hostSvc := host.NewHostService(host.Options{
		GOOS:      "linux",
		Logger:    logger,
		PrimaryIP: func() string { return "192.168.1.10" },
		Runner: func(_ context.Context, name string, args ...string) error {
			s.commands = append(s.commands, name+" "+strings.Join(args, " "))
			return nil
		},
	})

	hb := &handlers.HandlerBundle{
		Sessions:         registry,
		HostLoopbackOnly: true,
		Session:          handlers.NewSessionHandler(registry, "8000", func() string { return "192.168.1.10" }),
		Files: &handlers.FileHandler{
			Transfer:   engine,
			Settings:   settings,
			Thumbnails: thumbs,
			Analytics:  stats,
			Janitor:    janitor.NewJanitor(janitor.Options{Resolver: resolver, Logger: logger}),
		},
		Host: &handlers.HostHandler{Host: hostSvc, Clipboard: clipboard.NewClipboardService()},
	}
	s.router = gin.New()
	RegisterRoutes(s.router, hb)
	return s
}

type call struct {
	method  string
	path    string
	remote  string
	body    io.Reader
	headers map[string]string
}

func (s *server) do(c call) *httptest.ResponseRecorder {
	req := httptest.NewRequest(c.method, c.path, c.body)
	req.RemoteAddr = c.remote
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func asHost() map[string]string { return map[string]string{utils.HeaderIsHost: "true"} }

// pair runs the PIN handshake over HTTP and returns the session id.
func (s *server) pair(device string) string {
	t := s.t
	w := s.do(call{method: http.MethodGet, path: "/api/session/init?device_name=" + device, remote: lanAddr})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"pin"`, "the peer never learns its PIN from init")
	var init struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &init))

	w = s.do(call{method: http.MethodGet, path: "/api/session/status", remote: hostAddr, headers: asHost()})
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Sessions []models.Session `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	var pin string
	for _, sess := range status.Sessions {
		if sess.ID == init.SessionID {
			pin = sess.PIN
		}
	}
	require.NotEmpty(t, pin)

	w = s.do(call{method: http.MethodPost, path: "/api/session/verify", remote: lanAddr, body: jsonBody(t, map[string]string{"pin": pin})})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "AUTHENTICATED")
	return init.SessionID
}

func (s *server) upload(sessionID, name string, body []byte) *httptest.ResponseRecorder {
	return s.do(call{
		method: http.MethodPost,
		path:   "/api/files/upload",
		remote: lanAddr,
		body:   bytes.NewReader(body),
		headers: map[string]string{
			utils.HeaderSessionID: sessionID,
			utils.HeaderFilename:  name,
			utils.HeaderFilesize:  strconv.Itoa(len(body)),
		},
	})
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w := s.do(call{method: http.MethodGet, path: "/health", remote: lanAddr})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPairUploadListDownload(t *testing.T) {
	s := newServer(t)
	id := s.pair("Laptop")
	body := []byte("0123456789")

	w := s.upload(id, "photo.exe", body)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = s.upload(id, "photo.png", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"filename":"photo.png"`)

	w = s.do(call{method: http.MethodGet, path: "/api/files/", remote: lanAddr, headers: map[string]string{utils.HeaderSessionID: id}})
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Artifact
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "photo.png", list[0].Name)
	assert.Equal(t, int64(10), list[0].Size)
	assert.Equal(t, models.DirectionReceived, list[0].Direction)

	w = s.do(call{method: http.MethodGet, path: "/api/files/download/photo.png", remote: lanAddr, headers: map[string]string{utils.HeaderSessionID: id}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "photo.png")

	w = s.do(call{method: http.MethodGet, path: "/api/files/download/missing.png", remote: lanAddr, headers: map[string]string{utils.HeaderSessionID: id}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadErrors(t *testing.T) {
	s := newServer(t)
	id := s.pair("Phone")

	w := s.do(call{
		method: http.MethodPost, path: "/api/files/upload", remote: lanAddr, body: strings.NewReader("abc"),
		headers: map[string]string{utils.HeaderSessionID: id, utils.HeaderFilename: "a.txt", utils.HeaderFilesize: "5"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(call{
		method: http.MethodPost, path: "/api/files/upload", remote: lanAddr, body: strings.NewReader("abc"),
		headers: map[string]string{utils.HeaderFilename: "a.txt"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "unpaired peers cannot upload")

	w = s.do(call{
		method: http.MethodPost, path: "/api/files/upload", remote: hostAddr, body: strings.NewReader("abc"),
		headers: map[string]string{utils.HeaderIsHost: "true", utils.HeaderSessionID: "null", utils.HeaderFilename: "a.txt"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "host push needs a target session")
}

func TestUploadFilenameIsPathUnescaped(t *testing.T) {
	s := newServer(t)
	id := s.pair("Laptop")

	// "+" is not decoded as a space; the sanitizer then replaces it.
	w := s.upload(id, "C++ notes.txt", []byte("cpp"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"filename":"C__ notes.txt"`)

	w = s.upload(id, "caf%C3%A9.txt", []byte("fr"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"filename":"café.txt"`)
}

func TestHostPushVisibleToPeerAndZip(t *testing.T) {
	s := newServer(t)
	id := s.pair("Tablet")

	w := s.do(call{
		method: http.MethodPost, path: "/api/files/upload", remote: hostAddr, body: strings.NewReader("from host"),
		headers: map[string]string{utils.HeaderIsHost: "true", utils.HeaderSessionID: id, utils.HeaderFilename: "gift.txt", utils.HeaderFilesize: "9"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, http.StatusOK, s.upload(id, "mine.txt", []byte("from peer")).Code)

	w = s.do(call{
		method: http.MethodPost, path: "/api/files/zip", remote: lanAddr,
		body:    jsonBody(t, map[string][]string{"names": {"gift.txt", "mine.txt"}}),
		headers: map[string]string{utils.HeaderSessionID: id},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	got := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		got[f.Name] = string(data)
	}
	assert.Equal(t, map[string]string{"gift.txt": "from host", "mine.txt": "from peer"}, got)

	w = s.do(call{
		method: http.MethodPost, path: "/api/files/delete", remote: lanAddr,
		body:    jsonBody(t, map[string][]string{"names": {"gift.txt", "mine.txt"}}),
		headers: map[string]string{utils.HeaderSessionID: id},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":2`)
}

func TestHostOnlyEndpoints(t *testing.T) {
	s := newServer(t)
	id := s.pair("Laptop")
	peer := map[string]string{utils.HeaderSessionID: id}

	assert.Equal(t, http.StatusForbidden, s.do(call{method: http.MethodGet, path: "/api/session/status", remote: lanAddr, headers: peer}).Code)
	// A LAN client claiming to be the host is not believed.
	assert.Equal(t, http.StatusForbidden, s.do(call{method: http.MethodGet, path: "/api/files/config", remote: lanAddr, headers: asHost()}).Code)

	w := s.do(call{
		method: http.MethodPost, path: "/api/files/config", remote: hostAddr, headers: asHost(),
		body: jsonBody(t, map[string]bool{"safety_filter": false, "overwrite_duplicates": true}),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, s.settings.SafetyFilter())
	assert.True(t, s.settings.OverwriteDuplicates())

	// The relaxed filter applies to the very next upload.
	assert.Equal(t, http.StatusOK, s.upload(id, "tool.exe", []byte("MZ")).Code)

	w = s.do(call{method: http.MethodGet, path: "/api/session/link", remote: hostAddr, headers: asHost()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://192.168.1.10:8000?id=session\\u0026start=1")

	w = s.do(call{method: http.MethodGet, path: "/api/files/analytics/history", remote: hostAddr, headers: asHost()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_received":2`)

	w = s.do(call{method: http.MethodPost, path: "/api/files/purge", remote: hostAddr, headers: asHost(), body: jsonBody(t, map[string]int{"max_age_seconds": -1})})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDisconnectAndBlock(t *testing.T) {
	s := newServer(t)
	a := s.pair("A")
	b := s.pair("B")

	w := s.do(call{method: http.MethodPost, path: "/api/session/disconnect/" + b, remote: lanAddr, headers: map[string]string{utils.HeaderSessionID: a}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(call{method: http.MethodPost, path: "/api/session/disconnect/" + a, remote: lanAddr, headers: map[string]string{utils.HeaderSessionID: a}})
	assert.Equal(t, http.StatusOK, w.Code)
	_, ok := s.registry.GetSession(a)
	assert.False(t, ok)

	w = s.do(call{method: http.MethodPost, path: "/api/session/block/" + b, remote: hostAddr, headers: asHost()})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(call{method: http.MethodGet, path: "/api/files/", remote: lanAddr, headers: map[string]string{utils.HeaderSessionID: b}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyRejectsWrongPIN(t *testing.T) {
	s := newServer(t)
	w := s.do(call{method: http.MethodPost, path: "/api/session/verify", remote: lanAddr, body: jsonBody(t, map[string]string{"pin": "0000"})})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid PIN")
}

func TestHostCommandAndClipboard(t *testing.T) {
	s := newServer(t)
	id := s.pair("Laptop")
	peer := map[string]string{utils.HeaderSessionID: id}

	w := s.do(call{method: http.MethodPost, path: "/api/host/command", remote: lanAddr, body: jsonBody(t, map[string]string{"command": "lock"})})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, s.commands)

	w = s.do(call{method: http.MethodPost, path: "/api/host/command", remote: lanAddr, headers: peer, body: jsonBody(t, map[string]string{"command": "lock"})})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"loginctl lock-session"}, s.commands)

	w = s.do(call{method: http.MethodPost, path: "/api/host/command", remote: lanAddr, headers: peer, body: jsonBody(t, map[string]string{"command": "format"})})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(call{method: http.MethodPost, path: "/api/host/clipboard", remote: lanAddr, headers: peer, body: jsonBody(t, map[string]string{"content": "hello"})})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(call{method: http.MethodGet, path: "/api/host/clipboard", remote: hostAddr, headers: asHost()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"content":"hello"`)
	assert.Contains(t, w.Body.String(), `"device_source":"Laptop"`)

	w = s.do(call{method: http.MethodGet, path: "/api/host/info", remote: lanAddr})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"primary_ip":"192.168.1.10"`)
}
