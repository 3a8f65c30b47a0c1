package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func embedServer(t *testing.T, vectorsPerInput int, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %q", r.Method)
		}

		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if body.Model != "test-model" {
			t.Errorf("unexpected model %q", body.Model)
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		n := len(body.Input)
		if vectorsPerInput >= 0 {
			n = vectorsPerInput
		}
		type datum struct {
			Embedding []float32 `json:"embedding"`
		}
		resp := struct {
			Data []datum `json:"data"`
		}{}
		for i := 0; i < n; i++ {
			resp.Data = append(resp.Data, datum{Embedding: []float32{float32(i), 0.5}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPEmbedder_Embed(t *testing.T) {
	srv := embedServer(t, -1, http.StatusOK)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "secret", "test-model")
	vectors, err := e.Embed(context.Background(), []string{"getUser", "UserService"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if len(vectors[0]) != 2 || vectors[1][0] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestHTTPEmbedder_AuthHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "secret", "test-model")
	if _, err := e.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Bearer secret" {
		t.Fatalf("expected bearer header, got %q", got)
	}

	anon := NewHTTPEmbedder(srv.URL, "", "test-model")
	if _, err := anon.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected no auth header without key, got %q", got)
	}
}

func TestHTTPEmbedder_ServerError(t *testing.T) {
	srv := embedServer(t, -1, http.StatusInternalServerError)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "", "test-model")
	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestHTTPEmbedder_CountMismatch(t *testing.T) {
	srv := embedServer(t, 1, http.StatusOK)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "", "test-model")
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error on vector count mismatch")
	}
}
