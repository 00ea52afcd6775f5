package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/quire/container"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
	"github.com/ByLCY/quire/store"
)

const greeting = `doc Greeting v1 {
  page A4 {
    text { "Hello, ${name}!" }
  }
}`

func chunkEncoder(chunks ...string) renderer.EncoderFunc {
	return func(_ context.Context, _ *layout.Result, _ layout.Request, w io.Writer) error {
		for _, c := range chunks {
			if _, err := io.WriteString(w, c); err != nil {
				return err
			}
		}
		return nil
	}
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	h := New().Handler()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRenderPDFStoresAndReportsLocation(t *testing.T) {
	reg := prometheus.NewRegistry()
	mem := store.NewMemory()
	h := New(WithRegistry(reg), WithSink(store.Factory(mem, "renders/"))).Handler()

	rr := post(t, h, "/render", RenderRequest{Source: greeting, Data: map[string]any{"name": "Quire"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF-"))

	loc := rr.Header().Get("Content-Location")
	require.True(t, strings.HasPrefix(loc, "memory://renders/"), loc)
	stored, err := mem.Get(context.Background(), strings.TrimPrefix(loc, "memory://"))
	require.NoError(t, err)
	assert.Equal(t, rr.Body.Bytes(), stored)

	metrics := httptest.NewRecorder()
	h.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `quire_renders_total{outcome="success"} 1`)
}

func TestRenderRejectsBadInput(t *testing.T) {
	h := New().Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/render", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = post(t, h, "/render", RenderRequest{Source: "doc {"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = post(t, h, "/render", RenderRequest{Source: `doc A v1 {
  page A4 {
    table { }
  }
}`})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRenderLayoutErrorIsUnprocessable(t *testing.T) {
	h := New().Handler()
	rr := post(t, h, "/render", RenderRequest{Source: `doc A v1 {
  meta {
    title: "no pages"
  }
}`})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRenderString(t *testing.T) {
	h := New(WithContainerOptions(container.WithEncoder(chunkEncoder("caf\xc3", "\xa9")))).Handler()

	rr := post(t, h, "/render/string", RenderRequest{Source: greeting})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp StringResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "café", resp.Content)
	assert.Equal(t, 1, resp.Pages)

	rr = post(t, h, "/render/string", RenderRequest{Source: greeting, Charset: "latin1"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "cafÃ©", resp.Content)

	rr = post(t, h, "/render/string", RenderRequest{Source: greeting, Charset: "ebcdic"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRenderStream(t *testing.T) {
	srv := httptest.NewServer(New(WithContainerOptions(container.WithEncoder(chunkEncoder("%PDF-", "1.7")))).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/render/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(RenderRequest{Source: greeting}))

	var chunks []string
	for {
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if kind == websocket.BinaryMessage {
			chunks = append(chunks, string(data))
			continue
		}
		var msg StreamMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, StreamTypeDone, msg.Type)
		assert.Equal(t, int64(8), msg.Bytes)
		assert.Equal(t, 1, msg.Pages)
		break
	}
	assert.Equal(t, []string{"%PDF-", "1.7"}, chunks)
}

func TestRenderStreamReportsErrors(t *testing.T) {
	srv := httptest.NewServer(New().Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/render/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"source": "doc {"}`)))
	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, StreamTypeError, msg.Type)
	assert.NotEmpty(t, msg.Error)
}
