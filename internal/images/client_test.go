package images

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newImageHost(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{UploadURL: srv.URL, APIKey: "img-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestUploadReturnsDisplayURL(t *testing.T) {
	var gotKey, gotField, gotFilename string
	var gotBytes []byte
	client := newImageHost(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		gotField = "image"
		gotFilename = header.Filename
		gotBytes, _ = io.ReadAll(file)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"display_url": "https://img.example/v/abc.png"},
		})
	})

	url, err := client.Upload(context.Background(), "avatar.png", bytes.NewReader([]byte("png-bytes")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://img.example/v/abc.png" {
		t.Fatalf("unexpected url: %q", url)
	}
	if gotKey != "img-key" {
		t.Fatalf("api key not sent, got %q", gotKey)
	}
	if gotField != "image" || gotFilename != "avatar.png" {
		t.Fatalf("unexpected form part: field=%q filename=%q", gotField, gotFilename)
	}
	if string(gotBytes) != "png-bytes" {
		t.Fatalf("unexpected upload content: %q", gotBytes)
	}
}

func TestUploadFallsBackToPlainURL(t *testing.T) {
	client := newImageHost(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"url": "https://img.example/raw/abc.png"},
		})
	})

	url, err := client.Upload(context.Background(), "avatar.jpg", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://img.example/raw/abc.png" {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	called := false
	client := newImageHost(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.Upload(context.Background(), "notes.pdf", strings.NewReader("x"))
	if err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
	if called {
		t.Fatalf("no request may be issued for a rejected file")
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	called := false
	client := newImageHost(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	if _, err := client.Upload(context.Background(), "avatar.png", strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty file")
	}
	if called {
		t.Fatalf("no request may be issued for an empty file")
	}
}

func TestUploadSurfacesHostFailure(t *testing.T) {
	client := newImageHost(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid API key"}}`))
	})

	_, err := client.Upload(context.Background(), "avatar.png", strings.NewReader("x"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateFilename(t *testing.T) {
	for _, name := range []string{"a.jpg", "a.JPG", "b.jpeg", "c.png", "d.gif", "e.webp"} {
		if err := ValidateFilename(name); err != nil {
			t.Errorf("ValidateFilename(%q) = %v, want nil", name, err)
		}
	}
	for _, name := range []string{"a.pdf", "b.exe", "noext", "c.svg"} {
		if err := ValidateFilename(name); err == nil {
			t.Errorf("ValidateFilename(%q) = nil, want error", name)
		}
	}
}
