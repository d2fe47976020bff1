package scrapeapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubmitCommentExtraction(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody submitRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(submitResponse{JobID: "h-123"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())

	handle, err := client.SubmitCommentExtraction(context.Background(), "secret-key", "https://www.linkedin.com/posts/abc")
	if err != nil {
		t.Fatalf("SubmitCommentExtraction() error = %v", err)
	}

	if handle != "h-123" {
		t.Errorf("handle = %q, want h-123", handle)
	}
	if gotPath != "/v1/jobs" {
		t.Errorf("path = %q, want /v1/jobs", gotPath)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody.Kind != "post_comments" || gotBody.PostURL != "https://www.linkedin.com/posts/abc" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestSubmitProfileExtraction_BatchBody(t *testing.T) {
	t.Parallel()

	var gotBody submitRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(submitResponse{JobID: "h-9"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())

	urls := []string{"https://www.linkedin.com/in/a", "https://www.linkedin.com/in/b"}
	if _, err := client.SubmitProfileExtraction(context.Background(), "k", urls); err != nil {
		t.Fatalf("SubmitProfileExtraction() error = %v", err)
	}

	if gotBody.Kind != "profile_details" {
		t.Errorf("kind = %q, want profile_details", gotBody.Kind)
	}
	if len(gotBody.ProfileURLs) != 2 {
		t.Errorf("profile_urls len = %d, want 2", len(gotBody.ProfileURLs))
	}
}

func TestFetchResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/jobs/h-1/results" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"ready","items":[
			{"profile_url":"https://www.linkedin.com/in/a","name":"A"},
			{"name":"no identifier here"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())

	results, err := client.FetchResults(context.Background(), "k", "h-1")
	if err != nil {
		t.Fatalf("FetchResults() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("results len = %d, want 2", len(results))
	}
	if results[0].ProfileURL != "https://www.linkedin.com/in/a" {
		t.Errorf("first profile URL = %q", results[0].ProfileURL)
	}
	if results[1].ProfileURL != "" {
		t.Errorf("second profile URL = %q, want empty", results[1].ProfileURL)
	}
}

func TestFetchResults_NotReady(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"running","items":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())

	_, err := client.FetchResults(context.Background(), "k", "h-1")
	if !errors.Is(err, ErrJobNotReady) {
		t.Errorf("error = %v, want ErrJobNotReady", err)
	}
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrProviderUnauthorized},
		{"forbidden", http.StatusForbidden, ErrProviderUnauthorized},
		{"not found", http.StatusNotFound, ErrJobHandleNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewClient(srv.URL, testLogger())

			_, err := client.FetchResults(context.Background(), "k", "h")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStatusMapping_ProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())

	_, err := client.FetchResults(context.Background(), "k", "h")

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if provErr.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", provErr.Status)
	}
	if provErr.Body != "upstream exploded" {
		t.Errorf("body = %q", provErr.Body)
	}
}

func TestExtractProfileURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		item string
		want string
	}{
		{"snake case", `{"profile_url":"https://x/in/a"}`, "https://x/in/a"},
		{"camel case", `{"profileUrl":"https://x/in/b"}`, "https://x/in/b"},
		{"linkedin field", `{"linkedin_url":"https://x/in/c"}`, "https://x/in/c"},
		{"generic url", `{"url":"https://x/in/d"}`, "https://x/in/d"},
		{"missing", `{"name":"nobody"}`, ""},
		{"empty value", `{"profile_url":""}`, ""},
		{"non-string value", `{"profile_url":42}`, ""},
		{"not an object", `[1,2,3]`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ExtractProfileURL(json.RawMessage(tt.item)); got != tt.want {
				t.Errorf("ExtractProfileURL(%s) = %q, want %q", tt.item, got, tt.want)
			}
		})
	}
}
