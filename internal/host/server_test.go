package host_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagstamp/internal/catalog"
	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/host"
	"github.com/roach88/tagstamp/internal/model"
	"github.com/roach88/tagstamp/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type testEnv struct {
	srv *httptest.Server
	eng *engine.Engine
	cat *catalog.Catalog
	hub *host.Hub
}

func entries() []model.Entry {
	return []model.Entry{
		&model.Template{ID: "bench", Name: "Bench", Tags: model.NewTagMap("amenity", "bench")},
		&model.Template{ID: "tree", Name: "Tree", Tags: model.NewTagMap("natural", "tree")},
		model.Separator,
		&model.Template{ID: "road", Name: "Road", Tags: model.NewTagMap("highway", "residential"), ForWays: true, NotForNodes: true},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat := catalog.New(store.NewMemory(), catalog.WithLogger(quiet))
	require.NoError(t, cat.Replace(entries()))

	hub := host.NewHub(quiet)
	eng := engine.New(cat,
		engine.WithLogger(quiet),
		engine.WithMutator(hub),
		engine.WithSelectionProvider(hub),
		engine.WithClipboard(host.BroadcastClipboard{Hub: hub}),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	s := host.NewServer(eng, cat, hub, host.WithServerLogger(quiet))
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, eng: eng, cat: cat, hub: hub}
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	resp, err := http.Post(e.srv.URL+path, "application/json", r)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	hello := readUntil(t, conn, host.TypeHello)
	assert.NotEmpty(t, hello.ClientID)
	require.Eventually(t, func() bool { return e.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

// readUntil reads messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) host.Message {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var msg host.Message
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", typ)
		if msg.Type == typ {
			return msg
		}
	}
}

func TestListTemplates(t *testing.T) {
	env := newTestEnv(t)

	var doc catalog.Document
	resp := env.get(t, "/api/templates", &doc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, doc.Templates, 4)
	assert.Equal(t, "bench", doc.Templates[0].ID)
	assert.True(t, doc.Templates[2].Separator)
	assert.True(t, doc.Templates[3].ForWays)
}

func TestColumns(t *testing.T) {
	env := newTestEnv(t)

	var body struct {
		Columns [][]catalog.DocumentEntry `json:"columns"`
	}
	resp := env.get(t, "/api/columns?columns=2&height=2", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Columns, 2)

	total := 0
	for _, col := range body.Columns {
		total += len(col)
	}
	assert.Equal(t, 4, total)

	resp = env.get(t, "/api/columns?columns=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClickValidation(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.post(t, "/api/templates/nope/click", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, env.post(t, "/api/templates/bench/click?count=9", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, env.post(t, "/api/templates/nope/select", nil).StatusCode)
}

func TestSelectionRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	resp := env.post(t, "/api/selection", map[string]any{"featurez": []string{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClickAppliesThroughWebsocket(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	sel := model.Selection{Features: []model.Feature{
		{ID: "n1", Target: model.Target{Geometry: model.Point, Tags: map[string]string{}}},
	}}
	assert.Equal(t, http.StatusAccepted, env.post(t, "/api/selection", sel).StatusCode)
	assert.Equal(t, http.StatusAccepted, env.post(t, "/api/templates/bench/click?count=1", nil).StatusCode)

	msg := readUntil(t, conn, host.TypeApply)
	require.Len(t, msg.Groups, 1)
	assert.Equal(t, "n1", msg.Groups[0].FeatureID)
	assert.Equal(t, []model.Mutation{model.Set("amenity", "bench")}, msg.Groups[0].Mutations)

	state := readUntil(t, conn, host.TypeState)
	require.NotNil(t, state.Update)
	assert.True(t, state.Update.State.Armed)
	assert.Equal(t, "bench", state.Update.State.TemplateID)

	var st engine.State
	env.get(t, "/api/state", &st)
	assert.True(t, st.Armed)
}

func TestWebsocketCommands(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(host.Message{Type: host.TypeSelect, TemplateID: "tree"}))
	require.NoError(t, conn.WriteJSON(host.Message{Type: host.TypeToggle}))
	require.Eventually(t, func() bool { return env.eng.State().Armed }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(host.Message{
		Type: host.TypeSelection,
		Selection: &model.Selection{Features: []model.Feature{
			{ID: "n7", Target: model.Target{Geometry: model.Point, Tags: map[string]string{}}},
		}},
	}))
	msg := readUntil(t, conn, host.TypeApply)
	assert.Equal(t, "n7", msg.Groups[0].FeatureID)

	require.NoError(t, conn.WriteJSON(host.Message{Type: host.TypeDeactivate}))
	require.Eventually(t, func() bool { return !env.eng.State().Armed }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(host.Message{Type: "bogus"}))
	errMsg := readUntil(t, conn, host.TypeError)
	assert.Contains(t, errMsg.Error, "bogus")

	require.NoError(t, conn.WriteJSON(host.Message{Type: host.TypeClick, TemplateID: "missing"}))
	errMsg = readUntil(t, conn, host.TypeError)
	assert.Contains(t, errMsg.Error, "missing")
}

func TestDoubleClickCopiesToEditor(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	env.post(t, "/api/templates/tree/click?count=2", nil)
	msg := readUntil(t, conn, host.TypeCopy)
	assert.Contains(t, msg.Text, `<tag k="natural" v="tree"/>`)
}

func TestTripleClickCreatesFeature(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	env.post(t, "/api/templates/bench/click?count=3", nil)
	msg := readUntil(t, conn, host.TypeCreate)
	require.NotNil(t, msg.Geometry)
	require.NotNil(t, msg.Tags)
	assert.Equal(t, model.Point, *msg.Geometry)
	assert.Equal(t, "amenity=bench", msg.Tags.String())
}

func TestClientDisconnectUnregisters(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)
	conn.Close()

	require.Eventually(t, func() bool { return env.hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestIconNotFound(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/api/icons/bench", nil).StatusCode)
}
