package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grammar-ollama/internal/correct"
	"grammar-ollama/internal/ollama"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGenerator struct {
	chunks []string
	err    error
	block  chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, _ ollama.GenerateRequest, onChunk func(string) error) error {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, c := range g.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return g.err
}

type fakeHealth struct{ err error }

func (h fakeHealth) HealthCheck(context.Context) error { return h.err }

func newTestServer(t *testing.T, gen correct.Generator, model string) (*Server, *correct.Session) {
	t.Helper()

	session := correct.NewSession(gen, correct.Options{Model: model})
	target, _ := url.Parse("http://127.0.0.1:1")
	s, err := New(session, fakeHealth{}, target, nil)
	require.NoError(t, err)
	return s, session
}

func postCorrect(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, EndPointCorrect, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func readEvents(t *testing.T, r io.Reader) []Event {
	t.Helper()

	var events []Event
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, &fakeGenerator{}, "")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Improve")
	assert.Contains(t, w.Body.String(), "No model configured")
}

func TestIndex_ReportsRequestFailures(t *testing.T) {
	s, _ := newTestServer(t, &fakeGenerator{}, "m")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	body := w.Body.String()
	assert.Contains(t, body, "catch (err)")
	assert.Contains(t, body, "fail(err.message)")
	assert.Contains(t, body, "fail(await errorText(res))")
	assert.Contains(t, body, "stream ended before completion")
}

func TestCorrect_StreamsSnapshots(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{
		ollama.ThinkOpen, "thinking...", ollama.ThinkClose,
		"She", " doesn't", " like it.",
	}}
	s, _ := newTestServer(t, gen, "deepseek-r1:1.5b")

	w := postCorrect(s.Handler(), `{"prompt":"she dont like it"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	events := readEvents(t, w.Body)
	require.Len(t, events, 5)

	assert.Equal(t, correct.StatusPending, events[0].Status)
	assert.False(t, events[0].CanSubmit)
	assert.Equal(t, "She doesn't", events[2].Response)

	final := events[len(events)-1]
	assert.Equal(t, correct.StatusSuccess, final.Status)
	assert.True(t, final.CanSubmit)
	assert.Equal(t, "She doesn't like it.", final.Response)
	assert.Contains(t, final.DiffHTML, `<del class="removed">dont</del><ins class="added">doesn&#39;t</ins>`)
	require.NotNil(t, final.Stats)
	assert.Equal(t, 2, final.Stats.Removed)

	for _, ev := range events {
		assert.NotContains(t, ev.Response, "thinking")
	}
}

func TestCorrect_ErrorEvent(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"She"}, err: errors.New("Ollama error: out of memory")}
	s, session := newTestServer(t, gen, "m")

	w := postCorrect(s.Handler(), `{"prompt":"she dont"}`)
	require.Equal(t, http.StatusOK, w.Code)

	events := readEvents(t, w.Body)
	final := events[len(events)-1]
	assert.Equal(t, correct.StatusError, final.Status)
	assert.Equal(t, "Ollama error: out of memory", final.Response)
	assert.Empty(t, final.DiffHTML)
	assert.Equal(t, correct.StatusError, session.Snapshot().Status)
}

func TestCorrect_NoModel(t *testing.T) {
	s, session := newTestServer(t, &fakeGenerator{chunks: []string{"x"}}, "")

	w := postCorrect(s.Handler(), `{"prompt":"she dont like it"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, correct.StatusIdle, session.Snapshot().Status)
}

func TestCorrect_BadRequests(t *testing.T) {
	s, _ := newTestServer(t, &fakeGenerator{}, "m")

	assert.Equal(t, http.StatusBadRequest, postCorrect(s.Handler(), `{"prompt":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, postCorrect(s.Handler(), `not json`).Code)
}

func TestCorrect_ConflictWhilePending(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"Done."}, block: make(chan struct{})}
	s, session := newTestServer(t, gen, "m")

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	type result struct {
		status int
		body   string
	}
	first := make(chan result, 1)
	go func() {
		resp, err := http.Post(srv.URL+EndPointCorrect, "application/json", strings.NewReader(`{"prompt":"done"}`))
		if err != nil {
			first <- result{}
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		first <- result{resp.StatusCode, string(body)}
	}()

	require.Eventually(t, func() bool {
		return session.Snapshot().Status == correct.StatusPending
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+EndPointCorrect, "application/json", strings.NewReader(`{"prompt":"second"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	close(gen.block)
	res := <-first
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `"status":"success"`)
}

func TestState(t *testing.T) {
	s, _ := newTestServer(t, &fakeGenerator{chunks: []string{"Fine."}}, "m")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, EndPointState, nil))
	assert.JSONEq(t, `{"status":"idle","prompt":"","response":"","can_submit":true}`, w.Body.String())

	postCorrect(s.Handler(), `{"prompt":"fine"}`)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, EndPointState, nil))

	var ev Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.Equal(t, correct.StatusSuccess, ev.Status)
	assert.Equal(t, "Fine.", ev.Response)
	assert.NotEmpty(t, ev.DiffHTML)
}

func TestHealth(t *testing.T) {
	session := correct.NewSession(&fakeGenerator{}, correct.Options{})
	target, _ := url.Parse("http://127.0.0.1:1")

	for _, tc := range []struct {
		err  error
		code int
	}{
		{nil, http.StatusOK},
		{errors.New("Ollama is unreachable"), http.StatusServiceUnavailable},
	} {
		s, err := New(session, fakeHealth{tc.err}, target, nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, EndPointHealth, nil))
		assert.Equal(t, tc.code, w.Code)
	}
}

func TestProxy_ForwardsToTarget(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s %s %s", r.Method, r.URL.RequestURI(), r.Host)
	}))
	defer upstream.Close()

	target, _ := url.Parse(upstream.URL)
	s, err := New(correct.NewSession(&fakeGenerator{}, correct.Options{}), fakeHealth{}, target, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/generate?x=1", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "POST /api/generate?x=1 "+target.Host, string(body))
}

func TestProxy_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	target, _ := url.Parse(upstream.URL)
	upstream.Close()

	s, err := New(correct.NewSession(&fakeGenerator{}, correct.Options{}), fakeHealth{}, target, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/tags")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
