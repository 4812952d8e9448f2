package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/test", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.Get(context.Background(), server.URL+"/test", nil)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header("Content-Type"))
	assert.Contains(t, resp.BodyString(), "hello")

	body, ok := resp.JSON()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"message": "hello"}, body)
}

func TestClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"name": "test"}`, string(data))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 123}`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.Post(context.Background(), server.URL, []byte(`{"name": "test"}`), map[string]string{
		"Content-Type": "application/json",
	})

	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Contains(t, resp.BodyString(), "123")
}

func TestClient_WithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := client.Get(context.Background(), server.URL, nil)

	assert.Error(t, err)
	assert.Equal(t, 50*time.Millisecond, client.Timeout())
}

func TestClient_WithDefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "override", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithDefaultHeaders(map[string]string{
		"Authorization": "test-token",
		"User-Agent":    "custom-agent",
	}))
	resp, err := client.Get(context.Background(), server.URL, map[string]string{"User-Agent": "override"})

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithFollowRedirects(false))
	resp, err := client.Get(context.Background(), server.URL+"/redirect", nil)

	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
}

func TestClient_MaxRedirects(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		redirectCount++
		http.Redirect(w, r, "/redirect", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithMaxRedirects(3))
	resp, err := client.Get(context.Background(), server.URL+"/redirect", nil)

	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.LessOrEqual(t, redirectCount, 4)
}

func TestSessionClient_KeepsCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			w.WriteHeader(http.StatusOK)
			return
		}
		c, err := r.Cookie("session")
		if err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx := context.Background()
	session := NewSessionClient()
	_, err := session.Get(ctx, server.URL+"/login", nil)
	require.NoError(t, err)
	resp, err := session.Get(ctx, server.URL+"/me", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Len(t, session.Cookies(server.URL), 1)

	// a second session starts empty
	other := NewSessionClient()
	resp, err = other.Get(ctx, server.URL+"/me", nil)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithRateLimit(0.5))
	_, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Get(ctx, server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		errMsg  string
	}{
		{name: "valid http URL", url: "http://example.com/path"},
		{name: "valid https URL", url: "https://example.com/path"},
		{name: "invalid scheme", url: "ftp://example.com", wantErr: true, errMsg: "unsupported URL scheme"},
		{name: "missing scheme", url: "example.com/path", wantErr: true, errMsg: "unsupported URL scheme"},
		{name: "missing host", url: "http:///path", wantErr: true, errMsg: "URL must have a host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://x/ping", JoinURL("http://x", "/ping"))
	assert.Equal(t, "http://x/ping", JoinURL("http://x/", "ping"))
	assert.Equal(t, "http://x/ping", JoinURL("http://x//", "//ping"))
	assert.Equal(t, "https://other/a", JoinURL("http://x", "https://other/a"))
	assert.Equal(t, "/ping", JoinURL("", "/ping"))
}

func TestEncodeBody(t *testing.T) {
	tests := []struct {
		name        string
		body        any
		contentType string
		wantBody    string
		wantType    string
	}{
		{name: "nil", body: nil, contentType: "", wantBody: "", wantType: ""},
		{name: "json map", body: map[string]any{"a": 1.0}, contentType: "application/json", wantBody: `{"a":1}`, wantType: "application/json"},
		{name: "json charset", body: []any{1.0}, contentType: "application/json; charset=utf-8", wantBody: `[1]`, wantType: "application/json; charset=utf-8"},
		{name: "form map", body: map[string]any{"u": "bob", "n": 2.0}, contentType: "application/x-www-form-urlencoded", wantBody: "n=2&u=bob", wantType: "application/x-www-form-urlencoded"},
		{name: "map without type is form", body: map[string]any{"u": "a b"}, contentType: "", wantBody: "u=a+b", wantType: ContentTypeForm},
		{name: "raw string", body: "hello", contentType: "text/plain", wantBody: "hello", wantType: "text/plain"},
		{name: "list without type is json", body: []any{"x"}, contentType: "", wantBody: `["x"]`, wantType: ContentTypeJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ct, err := EncodeBody(tt.body, tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(data))
			assert.Equal(t, tt.wantType, ct)
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, ContentTypeJSON, ContentTypeFor("json"))
	assert.Equal(t, ContentTypeForm, ContentTypeFor("form"))
	assert.Equal(t, ContentTypeText, ContentTypeFor("TEXT"))
	assert.Equal(t, "application/vnd.api+json", ContentTypeFor("application/vnd.api+json"))
	assert.Equal(t, "", ContentTypeFor(""))
}

func TestCurl(t *testing.T) {
	req := NewRequest("POST", "http://x/login").
		SetHeader("Content-Type", "application/json").
		SetBody([]byte(`{"user":"o'neil"}`))

	assert.Equal(t,
		`curl -X POST 'http://x/login' -H 'Content-Type: application/json' --data-raw '{"user":"o'\''neil"}'`,
		Curl(req))
}

func TestResponse_JSON(t *testing.T) {
	_, ok := (&Response{Body: []byte("not json")}).JSON()
	assert.False(t, ok)
	_, ok = (&Response{Body: []byte("  ")}).JSON()
	assert.False(t, ok)

	v, ok := (&Response{Body: []byte(`[1,2]`)}).JSON()
	require.True(t, ok)
	assert.Equal(t, []any{1.0, 2.0}, v)
}

func TestResponse_IsSuccess(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   bool
	}{
		{200, true},
		{204, true},
		{299, true},
		{300, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		resp := &Response{StatusCode: tt.statusCode}
		assert.Equal(t, tt.expected, resp.IsSuccess(), "StatusCode: %d", tt.statusCode)
	}
}
