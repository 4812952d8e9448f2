package runner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/abdul-hamid-achik/apisuite/packages/core/config"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer serves a small fake API used across the runner tests.
func echoServer(t *testing.T) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	mux := http.NewServeMux()

	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		headers := map[string]string{}
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method":  r.Method,
			"query":   r.URL.RawQuery,
			"headers": headers,
			"body":    string(body),
		})
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"token":"tok-1"}}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		if err != nil || c.Value != "abc123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"auth": r.Header.Get("Authorization")})
	})
	mux.HandleFunc("/text", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("plain ok"))
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestEngine(t *testing.T, mutate func(*config.Config), opts ...Option) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	e, err := NewEngine(cfg, append([]Option{WithVersion("test")}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine(nil)
	require.NoError(t, err)
	assert.NotNil(t, e.scripts)
	assert.Equal(t, "apisuite/dev", e.userAgent())

	cfg := config.DefaultConfig()
	cfg.Timeout = -1
	_, err = NewEngine(cfg)
	assert.Error(t, err)
}

func TestExecuteCase_SeededBase(t *testing.T) {
	srv, _ := echoServer(t)
	e := newTestEngine(t, nil)
	sess := e.NewSession(map[string]any{"base": srv.URL})

	res := e.ExecuteCase(context.Background(), sess, &model.TestCase{
		ID:     1,
		Name:   "ping",
		Method: "get",
		URL:    "{{base}}/ping",
		Assertions: []model.Assertion{
			{Check: "json.ok", Comparator: "equals", Expect: true},
		},
	})

	assert.Equal(t, model.StatusSuccess, res.Status, res.Error)
	assert.Equal(t, string(PhaseDone), res.Phase)
	assert.Equal(t, 200, res.StatusCode)
	require.NotNil(t, res.Request)
	assert.Equal(t, "GET", res.Request.Method)
	assert.Equal(t, srv.URL+"/ping", res.Request.URL)
	require.NotNil(t, res.Response)
	assert.Equal(t, map[string]any{"ok": true}, res.Response.JSON)
	require.Len(t, res.Assertions.Details, 1)
	assert.Equal(t, "true", res.Assertions.Details[0].Actual)
	assert.Positive(t, res.Duration)
}

func TestExecuteCase_RelativeURLJoinsBase(t *testing.T) {
	srv, _ := echoServer(t)
	e := newTestEngine(t, func(c *config.Config) { c.BaseURL = srv.URL + "/" })

	res := e.RunCase(context.Background(), &model.TestCase{Name: "rel", Method: "GET", URL: "/ping"}, nil)
	assert.Equal(t, model.StatusSuccess, res.Status, res.Error)
	assert.Equal(t, srv.URL+"/ping", res.Request.URL)
}

func TestExecuteCase_HeaderMerge(t *testing.T) {
	srv, _ := echoServer(t)
	e := newTestEngine(t, func(c *config.Config) {
		c.BaseURL = srv.URL
		c.Headers = map[string]string{"X-Team": "qa", "X-Env": "{{env}}"}
	})

	res := e.RunCase(context.Background(), &model.TestCase{
		Name:    "headers",
		Method:  "GET",
		URL:     "/echo",
		Headers: map[string]any{"accept": "text/plain", "X-Team": "core"},
	}, map[string]any{"env": "ci"})
	require.Equal(t, model.StatusSuccess, res.Status, res.Error)

	got := res.Response.JSON.(map[string]any)["headers"].(map[string]any)
	assert.Equal(t, "text/plain", got["Accept"])
	assert.Equal(t, "apisuite/test", got["User-Agent"])
	assert.Equal(t, "core", got["X-Team"])
	assert.Equal(t, "ci", got["X-Env"])

	assert.Equal(t, "text/plain", res.Request.Headers["accept"])
	_, dup := res.Request.Headers["Accept"]
	assert.False(t, dup)
}

func TestExecuteCase_BodyEncoding(t *testing.T) {
	srv, _ := echoServer(t)
	e := newTestEngine(t, func(c *config.Config) { c.BaseURL = srv.URL })
	seed := map[string]any{"user": "ada", "age": 36}

	t.Run("json from content type hint", func(t *testing.T) {
		res := e.RunCase(context.Background(), &model.TestCase{
			Name:        "json",
			Method:      "POST",
			URL:         "/echo",
			ContentType: "json",
			Body:        map[string]any{"name": "{{user}}", "age": "{{age}}"},
		}, seed)
		require.Equal(t, model.StatusSuccess, res.Status, res.Error)

		echoed := res.Response.JSON.(map[string]any)
		assert.JSONEq(t, `{"name":"ada","age":36}`, echoed["body"].(string))
		assert.Equal(t, "application/json", echoed["headers"].(map[string]any)["Content-Type"])
	})

	t.Run("form from header", func(t *testing.T) {
		res := e.RunCase(context.Background(), &model.TestCase{
			Name:    "form",
			Method:  "POST",
			URL:     "/echo",
			Headers: map[string]any{"Content-Type": "application/x-www-form-urlencoded"},
			Body:    map[string]any{"name": "{{user}}"},
		}, seed)
		require.Equal(t, model.StatusSuccess, res.Status, res.Error)

		form, err := url.ParseQuery(res.Response.JSON.(map[string]any)["body"].(string))
		require.NoError(t, err)
		assert.Equal(t, "ada", form.Get("name"))
	})
}

func TestExecuteCase_SetupHook(t *testing.T) {
	srv, hits := echoServer(t)
	e := newTestEngine(t, func(c *config.Config) { c.BaseURL = srv.URL })

	t.Run("mutates request and variables", func(t *testing.T) {
		sess := e.NewSession(nil)
		res := e.ExecuteCase(context.Background(), sess, &model.TestCase{
			Name:        "signed",
			Method:      "GET",
			URL:         "/echo",
			SetupScript: "setField(\"url\", url + \"?sig=1\")\nsetField(\"method\", \"post\")\nsetVar(\"seen\", true)\nlog(\"signing\", method)",
		})
		require.Equal(t, model.StatusSuccess, res.Status, res.Error)

		echoed := res.Response.JSON.(map[string]any)
		assert.Equal(t, "sig=1", echoed["query"])
		assert.Equal(t, "POST", echoed["method"])
		v, ok := sess.Vars.Get("seen")
		assert.True(t, ok)
		assert.Equal(t, true, v)
	})

	t.Run("failure sends nothing", func(t *testing.T) {
		before := atomic.LoadInt64(hits)
		res := e.RunCase(context.Background(), &model.TestCase{
			Name:        "broken",
			Method:      "GET",
			URL:         "/ping",
			SetupScript: "undefinedFunction()",
		}, nil)

		assert.Equal(t, model.StatusError, res.Status)
		assert.Equal(t, string(PhaseSetup), res.Phase)
		assert.Contains(t, res.Error, "setup script failed")
		assert.Nil(t, res.Response)
		assert.Equal(t, before, atomic.LoadInt64(hits))
	})
}

func TestExecuteCase_TeardownHook(t *testing.T) {
	srv, _ := echoServer(t)
	e := newTestEngine(t, func(c *config.Config) { c.BaseURL = srv.URL })

	t.Run("reads response", func(t *testing.T) {
		sess := e.NewSession(nil)
		res := e.ExecuteCase(context.Background(), sess, &model.TestCase{
			Name:           "login",
			Method:         "POST",
			URL:            "/login",
			TeardownScript: "setVar(\"token\", response_json.data.token)\nsetVar(\"code\", status_code)",
		})
		require.Equal(t, model.StatusSuccess, res.Status, res.Error)
		tok, _ := sess.Vars.Get("token")
		assert.Equal(t, "tok-1", tok)
	})

	t.Run("failure keeps exchange", func(t *testing.T) {
		res := e.RunCase(context.Background(), &model.TestCase{
			Name:           "broken",
			Method:         "GET",
			URL:            "/ping",
			TeardownScript: "1 +",
		}, nil)

		assert.Equal(t, model.StatusError, res.Status)
		assert.Equal(t, string(PhaseTeardown), res.Phase)
		assert.Contains(t, res.Error, "teardown script failed")
		assert.Equal(t, 200, res.StatusCode)
		require.NotNil(t, res.Request)
		require.NotNil(t, res.Response)
		assert.Equal(t, `{"ok":true}`, res.Response.Body)
	})
}

func TestExecuteCase_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	e := newTestEngine(t, nil)
	res := e.RunCase(context.Background(), &model.TestCase{
		Name:       "down",
		Method:     "GET",
		URL:        addr + "/ping",
		Assertions: []model.Assertion{{Check: "status_code", Comparator: "equals", Expect: 200}},
	}, nil)

	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, string(PhaseDispatching), res.Phase)
	assert.Contains(t, res.Error, "request failed")
	require.NotNil(t, res.Request)
	assert.Equal(t, addr+"/ping", res.Request.URL)
	assert.Nil(t, res.Response)
	assert.Empty(t, res.Assertions.Details)
}

func TestExecuteCase_NonJSONResponse(t *testing.T) {
	srv, _ := echoServer(t)
	e := newTestEngine(t, func(c *config.Config) { c.BaseURL = srv.URL })

	res := e.RunCase(context.Background(), &model.TestCase{
		Name:         "text",
		Method:       "GET",
		URL:          "/text",
		ExtractRules: model.ExtractRules{{Name: "x", Path: "$.x"}},
		Assertions: []model.Assertion{
			{Check: "status_code", Comparator: "==", Expect: "200"},
		},
	}, nil)

	assert.Equal(t, model.StatusSuccess, res.Status, res.Error)
	assert.Nil(t, res.Response.JSON)
	assert.Equal(t, "plain ok", res.Response.Body)
	require.Len(t, res.Extractions, 1)
	assert.False(t, res.Extractions[0].Found)
}

func TestExecuteCase_AssertionFailure(t *testing.T) {
	srv, _ := echoServer(t)
	e := newTestEngine(t, func(c *config.Config) { c.BaseURL = srv.URL })

	res := e.RunCase(context.Background(), &model.TestCase{
		Name:   "wrong",
		Method: "GET",
		URL:    "/ping",
		Assertions: []model.Assertion{
			{Check: "status_code", Comparator: "equals", Expect: 200},
			{Check: "json.ok", Comparator: "equals", Expect: false},
			{Check: "json.missing", Comparator: "equals", Expect: 1},
		},
	}, nil)

	assert.Equal(t, model.StatusFail, res.Status)
	assert.Empty(t, res.Error)
	require.Len(t, res.Assertions.Details, 3)
	assert.Equal(t, model.StatusSuccess, res.Assertions.Details[0].Result)
	assert.Equal(t, model.StatusFail, res.Assertions.Details[1].Result)
	assert.Equal(t, "undefined", res.Assertions.Details[2].Actual)
}

func TestExecuteCase_Cancelled(t *testing.T) {
	srv, hits := echoServer(t)
	e := newTestEngine(t, func(c *config.Config) { c.BaseURL = srv.URL })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.RunCase(ctx, &model.TestCase{Name: "late", Method: "GET", URL: "/ping"}, nil)
	assert.Equal(t, model.StatusError, res.Status)
	assert.True(t, strings.HasPrefix(res.Error, "cancelled"))
	assert.Equal(t, int64(0), atomic.LoadInt64(hits))
}

func TestSession_SharesCookiesAndVariables(t *testing.T) {
	srv, _ := echoServer(t)
	e := newTestEngine(t, func(c *config.Config) { c.BaseURL = srv.URL })
	sess := e.NewSession(nil)
	ctx := context.Background()

	login := e.ExecuteCase(ctx, sess, &model.TestCase{
		Name:         "login",
		Method:       "POST",
		URL:          "/login",
		ExtractRules: model.ExtractRules{{Name: "token", Path: "$.data.token"}},
	})
	require.Equal(t, model.StatusSuccess, login.Status, login.Error)

	me := e.ExecuteCase(ctx, sess, &model.TestCase{
		Name:    "me",
		Method:  "GET",
		URL:     "/me",
		Headers: map[string]any{"Authorization": "Bearer {{token}}"},
		Assertions: []model.Assertion{
			{Check: "status_code", Comparator: "equals", Expect: 200},
			{Check: "json", Comparator: "contains", Expect: map[string]any{"auth": "Bearer tok-1"}},
		},
	})
	assert.Equal(t, model.StatusSuccess, me.Status, me.Error)

	// a new session starts without the cookie
	other := e.ExecuteCase(ctx, e.NewSession(nil), &model.TestCase{
		Name:       "me again",
		Method:     "GET",
		URL:        "/me",
		Assertions: []model.Assertion{{Check: "status_code", Comparator: "equals", Expect: 200}},
	})
	assert.Equal(t, model.StatusFail, other.Status)
}

func TestDebugCase(t *testing.T) {
	srv, _ := echoServer(t)
	e := newTestEngine(t, func(c *config.Config) { c.BaseURL = srv.URL })

	dbg := e.DebugCase(context.Background(), &model.TestCase{
		Name:           "debug",
		Method:         "POST",
		URL:            "/login",
		Headers:        map[string]any{"X-Trace": "{{trace}}"},
		SetupScript:    `log("before", url)`,
		TeardownScript: `log("after", status_code)`,
		ExtractRules:   model.ExtractRules{{Name: "token", Path: "data.token"}},
	}, map[string]any{"seed": 1})

	require.Equal(t, model.StatusSuccess, dbg.Result.Status, dbg.Result.Error)
	assert.Equal(t, "tok-1", dbg.Variables["token"])
	assert.Equal(t, 1, dbg.Variables["seed"])

	joined := strings.Join(dbg.Log, "\n")
	assert.Contains(t, joined, `variable "trace" is not set`)
	assert.Contains(t, joined, "[setup] before "+srv.URL+"/login")
	assert.Contains(t, joined, "[teardown] after 200")
	assert.Contains(t, joined, "curl -X POST")
	assert.Contains(t, joined, "extract token = tok-1")
}
