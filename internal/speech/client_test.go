package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{STTURL: srv.URL, TTSURL: srv.URL}, tokens, srv.Client(), zaptest.NewLogger(t))
}

func TestClient_Recognize(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != recognizePath {
			t.Errorf("path = %q, want %q", r.URL.Path, recognizePath)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer iam-token" {
			t.Errorf("Authorization = %q, want Bearer iam-token", got)
		}
		if got := r.URL.Query().Get("lang"); got != "ru-RU" {
			t.Errorf("lang = %q, want ru-RU", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "ogg-bytes" {
			t.Errorf("body = %q, want ogg-bytes", body)
		}
		_, _ = w.Write([]byte(`{"result":" Москва "}`))
	}, StaticToken("iam-token"))

	text, err := client.Recognize(context.Background(), []byte("ogg-bytes"))
	if err != nil {
		t.Fatalf("Recognize() unexpected error: %v", err)
	}
	if text != "Москва" {
		t.Errorf("Recognize() = %q, want Москва", text)
	}
}

func TestClient_Recognize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "api error", status: http.StatusBadRequest, body: `{"error_code":"BAD_REQUEST","error_message":"audio is too long"}`},
		{name: "unauthorized non json", status: http.StatusUnauthorized, body: `denied`},
		{name: "missing result", status: http.StatusOK, body: `{}`},
		{name: "malformed", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, StaticToken("iam-token"))

			if _, err := client.Recognize(context.Background(), []byte("x")); err == nil {
				t.Error("Recognize() expected error, got nil")
			}
		})
	}
}

func TestClient_Synthesize(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != synthesizePath {
			t.Errorf("path = %q, want %q", r.URL.Path, synthesizePath)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer iam-token" {
			t.Errorf("Authorization = %q, want Bearer iam-token", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		want := map[string]string{"text": "Привет", "voice": "ermil", "emotion": "good"}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("form %s = %q, want %q", k, got, v)
			}
		}
		_, _ = w.Write([]byte("OggS-synth"))
	}, StaticToken("iam-token"))

	audio, err := client.Synthesize(context.Background(), "Привет")
	if err != nil {
		t.Fatalf("Synthesize() unexpected error: %v", err)
	}
	if string(audio) != "OggS-synth" {
		t.Errorf("Synthesize() = %q, want OggS-synth", audio)
	}
}

func TestClient_Synthesize_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_code":"UNAUTHORIZED","error_message":"permission denied"}`))
	}, StaticToken("iam-token"))

	_, err := client.Synthesize(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Synthesize() error = %v, want *APIError", err)
	}
	if apiErr.Code != "UNAUTHORIZED" {
		t.Errorf("Code = %q, want UNAUTHORIZED", apiErr.Code)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", apiErr.Status)
	}
}

func TestClient_TokenFailureSkipsRequest(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, StaticToken(""))

	if _, err := client.Synthesize(context.Background(), "x"); err == nil {
		t.Error("Synthesize() expected error, got nil")
	}
	if called {
		t.Error("request should not be sent without a token")
	}
}

func TestMetadataTokenSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Metadata-Flavor"); got != "Google" {
			t.Errorf("Metadata-Flavor = %q, want Google", got)
		}
		_, _ = w.Write([]byte(`{"access_token":"t1.abc","expires_in":3600,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	src := NewMetadataTokenSource(srv.URL, srv.Client())
	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() unexpected error: %v", err)
	}
	if tok != "t1.abc" {
		t.Errorf("Token() = %q, want t1.abc", tok)
	}
}

func TestMetadataTokenSource_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewMetadataTokenSource(srv.URL, srv.Client())
	if _, err := src.Token(context.Background()); err == nil {
		t.Error("Token() expected error, got nil")
	}
}
