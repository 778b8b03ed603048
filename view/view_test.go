package view

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeAPI answers GET /api/{resource} from a table of canned responses.
type fakeAPI struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	hits      map[string]int
	cookies   map[string]string
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		responses: make(map[string]fakeResponse),
		hits:      make(map[string]int),
		cookies:   make(map[string]string),
	}
}

func (f *fakeAPI) set(resource string, status int, body string) {
	f.mu.Lock()
	f.responses[resource] = fakeResponse{status: status, body: body}
	f.mu.Unlock()
}

func (f *fakeAPI) hitCount(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[resource]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/")
	f.mu.Lock()
	f.hits[name]++
	if c, err := r.Cookie("session"); err == nil {
		f.cookies[name] = c.Value
	}
	resp, ok := f.responses[name]
	f.mu.Unlock()

	if name == "login" && r.Method == http.MethodPost {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s-1", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"role":"manager","id":1}`))
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func newTestView(t *testing.T, api http.Handler, opts ...Option) (*TableView, *Document, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)

	doc := NewDocument()
	return NewTableView(client, doc, opts...), doc, srv
}

func TestLoadAndRenderWritesContainer(t *testing.T) {
	api := newFakeAPI()
	api.set("roominfo", http.StatusOK, `[{"RoomNo":101,"Vacancy":2},{"RoomNo":102,"Vacancy":0}]`)
	v, doc, _ := newTestView(t, api)
	c := doc.AddContainer("roominfoTable")

	require.NoError(t, v.LoadAndRender(context.Background(), "roominfo"))

	headers, rows := parseTable(t, c.InnerHTML())
	assert.Equal(t, []string{"RoomNo", "Vacancy"}, headers)
	assert.Equal(t, [][]string{{"101", "2"}, {"102", "0"}}, rows)
	assert.Empty(t, doc.Location())
}

func TestLoadAndRenderUnauthorizedRedirects(t *testing.T) {
	api := newFakeAPI()
	api.set("studentinfo", http.StatusUnauthorized, `{"error":"Not logged in"}`)
	v, doc, _ := newTestView(t, api)
	c := doc.AddContainer("studentinfoTable")
	c.SetInnerHTML("previous")

	require.NoError(t, v.LoadAndRender(context.Background(), "studentinfo"))

	assert.Equal(t, "login.html", doc.Location())
	assert.Equal(t, "previous", c.InnerHTML())
	assert.Equal(t, 1, c.Writes())
}

func TestLoadAndRenderFailureKeepsPreviousTable(t *testing.T) {
	api := newFakeAPI()
	api.set("messinfo", http.StatusInternalServerError, `boom`)
	v, doc, _ := newTestView(t, api)
	c := doc.AddContainer("messinfoTable")
	c.SetInnerHTML("previous")

	err := v.LoadAndRender(context.Background(), "messinfo")

	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, http.StatusInternalServerError, lerr.StatusCode)
	assert.Equal(t, "previous", c.InnerHTML())
	assert.Empty(t, doc.Location())
}

func TestLoadAndRenderForbiddenIsLoadError(t *testing.T) {
	api := newFakeAPI()
	api.set("hostelmanagerinfo", http.StatusForbidden, `{"error":"Forbidden"}`)
	v, doc, _ := newTestView(t, api)
	doc.AddContainer("hostelmanagerinfoTable")

	err := v.LoadAndRender(context.Background(), "hostelmanagerinfo")

	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, http.StatusForbidden, lerr.StatusCode)
	assert.Empty(t, doc.Location())
}

func TestLoadAndRenderMalformedBody(t *testing.T) {
	api := newFakeAPI()
	api.set("feesinfo", http.StatusOK, `[{"StudentId":1,`)
	v, doc, _ := newTestView(t, api)
	c := doc.AddContainer("feesinfoTable")
	c.SetInnerHTML("previous")

	err := v.LoadAndRender(context.Background(), "feesinfo")

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "previous", c.InnerHTML())
}

func TestLoadAndRenderParseErrorWithoutContainer(t *testing.T) {
	api := newFakeAPI()
	api.set("feesinfo", http.StatusOK, `not json`)
	v, _, _ := newTestView(t, api)

	var perr *ParseError
	require.ErrorAs(t, v.LoadAndRender(context.Background(), "feesinfo"), &perr)
}

func TestLoadAndRenderMissingContainerIsNoop(t *testing.T) {
	api := newFakeAPI()
	api.set("blockinfo", http.StatusOK, `[{"HostelId":1}]`)
	v, doc, _ := newTestView(t, api)
	other := doc.AddContainer("roominfoTable")

	require.NoError(t, v.LoadAndRender(context.Background(), "blockinfo"))

	assert.Equal(t, 1, api.hitCount("blockinfo"))
	assert.Equal(t, 0, other.Writes())
}

func TestLoadAndRenderEmptyDataset(t *testing.T) {
	api := newFakeAPI()
	api.set("roomapplication", http.StatusOK, `[]`)
	v, doc, _ := newTestView(t, api)
	c := doc.AddContainer("roomapplicationTable")

	require.NoError(t, v.LoadAndRender(context.Background(), "roomapplication"))

	assert.Equal(t, "<tbody><tr><td>No data</td></tr></tbody>", c.InnerHTML())
}

func TestLoadAndRenderIdempotent(t *testing.T) {
	api := newFakeAPI()
	api.set("blockinfo", http.StatusOK, `[{"HostelId":1,"Type":"<A>","Vacancy":null},{"HostelId":2}]`)
	v, doc, _ := newTestView(t, api)
	c := doc.AddContainer("blockinfoTable")

	require.NoError(t, v.LoadAndRender(context.Background(), "blockinfo"))
	first := c.InnerHTML()
	require.NoError(t, v.LoadAndRender(context.Background(), "blockinfo"))

	assert.Equal(t, first, c.InnerHTML())
	assert.Equal(t, 2, c.Writes())
}

func TestLoadAndRenderEmptyResource(t *testing.T) {
	v, _, _ := newTestView(t, newFakeAPI())

	assert.ErrorIs(t, v.LoadAndRender(context.Background(), ""), ErrEmptyResource)
}

func TestLoadAndRenderSendsCredentials(t *testing.T) {
	api := newFakeAPI()
	api.set("studentinfo", http.StatusOK, `[]`)
	srv := httptest.NewServer(api)
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)
	require.NoError(t, client.Login(context.Background(), "admin", "secret"))

	v := NewTableView(client, NewDocument())
	require.NoError(t, v.LoadAndRender(context.Background(), "studentinfo"))

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, "s-1", api.cookies["studentinfo"])
}

func TestActivateTab(t *testing.T) {
	ignore := goleak.IgnoreCurrent()

	api := newFakeAPI()
	api.set("roominfo", http.StatusOK, `[{"RoomNo":1}]`)
	api.set("messinfo", http.StatusOK, `[{"MessId":7}]`)
	v, doc, srv := newTestView(t, api, WithTabs("roominfo", "messinfo"))
	rooms := doc.AddContainer("roominfoTable")
	doc.AddContainer("messinfoTable")

	v.ActivateTab(context.Background(), "roominfo")
	assert.Equal(t, "roominfo", v.ActiveTab())
	assert.True(t, v.PanelActive("roominfo"))
	assert.False(t, v.PanelActive("messinfo"))

	v.ActivateTab(context.Background(), "messinfo")
	assert.Equal(t, "messinfo", v.ActiveTab())
	assert.False(t, v.PanelActive("roominfo"))
	assert.True(t, v.PanelActive("messinfo"))

	v.Wait()
	_, rows := parseTable(t, rooms.InnerHTML())
	assert.Equal(t, [][]string{{"1"}}, rows)
	assert.Equal(t, []string{"messinfo", "roominfo"}, v.Tabs())

	srv.Close()
	http.DefaultTransport.(*http.Transport).CloseIdleConnections()
	goleak.VerifyNone(t, ignore)
}

func TestActivateTabWithoutPanel(t *testing.T) {
	api := newFakeAPI()
	api.set("feesinfo", http.StatusOK, `[]`)
	v, _, _ := newTestView(t, api)

	v.ActivateTab(context.Background(), "feesinfo")
	v.Wait()

	assert.Equal(t, "feesinfo", v.ActiveTab())
	assert.False(t, v.PanelActive("feesinfo"))
}

func TestActivateTabLogsFailureAndStaysActive(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	api := newFakeAPI()
	api.set("roominfo", http.StatusBadGateway, ``)
	v, doc, _ := newTestView(t, api, WithLogger(zap.New(core)), WithTabs("roominfo"))
	c := doc.AddContainer("roominfoTable")

	v.ActivateTab(context.Background(), "roominfo")
	v.Wait()

	assert.True(t, v.PanelActive("roominfo"))
	assert.Equal(t, 0, c.Writes())
	entries := logs.FilterMessage("load table failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "roominfo", entries[0].ContextMap()["resource"])
}

func TestInitPrefetchesDefaultResource(t *testing.T) {
	api := newFakeAPI()
	api.set("blockinfo", http.StatusOK, `[{"HostelId":1}]`)
	v, doc, _ := newTestView(t, api)
	c := doc.AddContainer("blockinfoTable")

	v.Init(context.Background())
	v.Wait()

	assert.Equal(t, 1, c.Writes())
	assert.Equal(t, 1, api.hitCount("blockinfo"))
}

func TestInitWithoutContainerDoesNothing(t *testing.T) {
	api := newFakeAPI()
	v, _, _ := newTestView(t, api)

	v.Init(context.Background())
	v.Wait()

	assert.Equal(t, 0, api.hitCount("blockinfo"))
}

func TestInitSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	api := newFakeAPI()
	api.set("blockinfo", http.StatusOK, `{{{`)
	v, doc, _ := newTestView(t, api, WithLogger(zap.New(core)))
	c := doc.AddContainer("blockinfoTable")

	v.Init(context.Background())
	v.Wait()

	assert.Equal(t, 0, c.Writes())
	assert.Equal(t, 0, logs.Len())
}

func TestInitCustomDefaultResource(t *testing.T) {
	api := newFakeAPI()
	api.set("roominfo", http.StatusOK, `[]`)
	v, doc, _ := newTestView(t, api, WithDefaultResource("roominfo"), WithLoginPage("/signin"))
	c := doc.AddContainer("roominfoTable")

	v.Init(context.Background())
	v.Wait()

	assert.Equal(t, 1, c.Writes())
}

func TestConcurrentLoadsLastResolvedWins(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			// the first request answers last
			<-release
		}
		_, _ = fmt.Fprintf(w, `[{"call":%d}]`, n)
	})
	v, doc, _ := newTestView(t, api)
	c := doc.AddContainer("roominfoTable")

	v.ActivateTab(context.Background(), "roominfo")
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	require.NoError(t, v.LoadAndRender(context.Background(), "roominfo"))

	_, rows := parseTable(t, c.InnerHTML())
	assert.Equal(t, [][]string{{"2"}}, rows)

	close(release)
	v.Wait()
	_, rows = parseTable(t, c.InnerHTML())
	assert.Equal(t, [][]string{{"1"}}, rows)
	assert.Equal(t, 2, c.Writes())
}

func TestLoadAndRenderHonorsContext(t *testing.T) {
	block := make(chan struct{})
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	v, doc, _ := newTestView(t, api)
	defer close(block)
	c := doc.AddContainer("roominfoTable")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Error(t, v.LoadAndRender(ctx, "roominfo"))
	assert.Equal(t, 0, c.Writes())
}
