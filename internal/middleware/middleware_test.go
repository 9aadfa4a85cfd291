package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"showcase-tracker/internal/messages"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

func TestRequestIDGenerated(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	var seen string
	h := RequestID(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	id := rec.Header().Get("X-Request-ID")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", id, err)
	}
	if seen != id {
		t.Fatalf("context id=%q header id=%q", seen, id)
	}
	logs := buf.String()
	if strings.Count(logs, `"request_id":"`+id+`"`) != 3 {
		t.Fatalf("expected three log lines tagged with the id:\n%s", logs)
	}
	if !strings.Contains(logs, `"status":418`) {
		t.Fatalf("status not logged:\n%s", logs)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	t.Parallel()
	h := RequestID(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("request id=%q", got)
	}
}

func TestLanguage(t *testing.T) {
	t.Parallel()
	msgs, err := messages.New("zh-Hans")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	var got language.Tag
	h := Language(msgs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = msgs.Language(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got != language.AmericanEnglish || rec.Header().Get("Content-Language") != "en-US" {
		t.Fatalf("tag=%v content-language=%q", got, rec.Header().Get("Content-Language"))
	}
	if tag := msgs.Language(req.Context()); tag != language.SimplifiedChinese {
		t.Fatalf("fallback=%v", tag)
	}
}
