package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// logLines decodes one JSON object per line.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ln := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if ln == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(ln), &m); err != nil {
			t.Fatalf("bad log line %q: %v", ln, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/healthz", func(c *gin.Context) {
		v, _ := c.Get(requestIDKey)
		c.String(http.StatusOK, asString(v))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	gen := w.Header().Get(requestIDHeader)
	if gen == "" || w.Body.String() != gen {
		t.Fatalf("generated id %q not stored on context (%q)", gen, w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("x-request-id", "relay-7")
	r.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "relay-7" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}

func TestLogger_LevelsFollowOutcome(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/user/:token", func(c *gin.Context) { c.String(http.StatusOK, "view") })
	r.POST("/tasks/daily_push", func(c *gin.Context) {
		_ = c.Error(errSentinel{})
		c.Status(http.StatusBadRequest)
	})
	r.POST("/api/forms/google", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	for _, rq := range []struct{ method, path string }{
		{http.MethodGet, "/user/tok-secret"},
		{http.MethodGet, "/missing"},
		{http.MethodPost, "/tasks/daily_push"},
		{http.MethodPost, "/api/forms/google"},
	} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(rq.method, rq.path, nil))
	}

	lines := logLines(t, buf)
	if len(lines) != 4 {
		t.Fatalf("expected 4 access lines, got %d:\n%s", len(lines), buf.String())
	}
	want := []struct{ level, path string }{
		{"info", "/user/:token"},
		{"warn", "/missing"},
		{"error", "/tasks/daily_push"},
		{"error", "/api/forms/google"},
	}
	for i, w := range want {
		if lines[i]["level"] != w.level || lines[i]["path"] != w.path {
			t.Fatalf("line %d = %v/%v; want %s/%s", i, lines[i]["level"], lines[i]["path"], w.level, w.path)
		}
		if lines[i]["request_id"] == "" {
			t.Fatalf("line %d has no request_id", i)
		}
	}
	if lines[2]["errors"] == nil {
		t.Fatalf("gin errors not logged: %v", lines[2])
	}
	if strings.Contains(buf.String(), "tok-secret") {
		t.Fatalf("dashboard token leaked into access log")
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "boom" }

func TestRecovery_PanicsToJSON500AndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(requestIDHeader, "rid-panic")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from Recovery, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != "rid-panic" {
		t.Fatalf("unexpected body: %v", body)
	}
	if !strings.Contains(buf.String(), `"message":"panic recovered"`) || !strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("expected panic log with stack, got:\n%s", buf.String())
	}
}

func TestLoggerFrom_FallbackAndRequestScoped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name    string
		mw      []gin.HandlerFunc
		wantRID bool
	}{
		{"fallback", []gin.HandlerFunc{RequestID()}, false},
		{"request scoped", []gin.HandlerFunc{RequestID(), Logger()}, true},
	}
	for _, tc := range cases {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(tc.mw...)
		r.GET("/use", func(c *gin.Context) {
			LoggerFrom(c).Info().Msg("handler line")
			c.Status(http.StatusOK)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))

		lines := logLines(t, buf)
		if len(lines) == 0 || lines[0]["message"] != "handler line" {
			t.Fatalf("%s: handler line missing:\n%s", tc.name, buf.String())
		}
		if _, has := lines[0]["request_id"]; has != tc.wantRID {
			t.Fatalf("%s: request_id present=%v; want %v", tc.name, has, tc.wantRID)
		}
	}
}

func TestHelpers_asString_and_truncate(t *testing.T) {
	if asString("x") != "x" || asString(123) != "" || asString(nil) != "" {
		t.Fatalf("asString failed")
	}
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"abcdefgh", 5, "abcde…"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Fatalf("truncate(%q,%d) = %q; want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestLogger_AttachesToRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.GET("/user/:token", func(c *gin.Context) {
		// Services log through zerolog.Ctx and must inherit request_id.
		zerolog.Ctx(c.Request.Context()).Info().Msg("from service")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/user/secret-token-value", nil)
	req.Header.Set(requestIDHeader, "rid-ctx")
	r.ServeHTTP(w, req)

	out := buf.String()
	if !strings.Contains(out, `"message":"from service"`) || !strings.Contains(out, `"request_id":"rid-ctx"`) {
		t.Fatalf("expected service log with request_id, got:\n%s", out)
	}
	if strings.Contains(out, "secret-token-value") {
		t.Fatalf("per-user token leaked into logs:\n%s", out)
	}
	if !strings.Contains(out, `"path":"/user/:token"`) {
		t.Fatalf("expected route pattern in access log, got:\n%s", out)
	}
}

func TestRecovery_PanicAfterWrite_NoJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(Recovery())

	// Headers are already out; Recovery may only abort.
	r.GET("/panic-after-write", func(c *gin.Context) {
		c.String(http.StatusOK, "partial-body")
		panic("late kaboom")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic-after-write", nil)
	r.ServeHTTP(w, req)

	if strings.Contains(w.Body.String(), "internal error") || strings.Contains(strings.ToLower(w.Header().Get("Content-Type")), "application/json") {
		t.Fatalf("expected no JSON error body when panic after write; got CT=%q body=%q",
			w.Header().Get("Content-Type"), w.Body.String())
	}

	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("expected panic log, got:\n%s", buf.String())
	}
}
