package fetch_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chriscorrea/tickersift/internal/fetch"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		setupFunc   func(t *testing.T) (source string, cleanup func())
		expectError bool
		expectData  string
	}{
		{
			name:   "http URL success",
			source: "",
			setupFunc: func(t *testing.T) (string, func()) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
					_, _ = w.Write([]byte("symbol,name\nAAA,Alpha\n"))
				}))
				return server.URL, server.Close
			},
			expectError: false,
			expectData:  "symbol,name\nAAA,Alpha\n",
		},
		{
			name:   "http URL with error status",
			source: "",
			setupFunc: func(t *testing.T) (string, func()) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNotFound)
				}))
				return server.URL, server.Close
			},
			expectError: true,
		},
		{
			name:   "local file success",
			source: "",
			setupFunc: func(t *testing.T) (string, func()) {
				path := filepath.Join(t.TempDir(), "snapshot.csv")
				if err := os.WriteFile(path, []byte("symbol,name\nBBB,Beta\n"), 0o644); err != nil {
					t.Fatalf("writing temp file: %v", err)
				}
				return path, func() {}
			},
			expectError: false,
			expectData:  "symbol,name\nBBB,Beta\n",
		},
		{
			name:        "non-existent file",
			source:      "/path/that/does/not/exist.csv",
			expectError: true,
		},
		{
			name:        "invalid URL",
			source:      "http://invalid-domain-that-definitely-does-not-exist.local",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := tt.source
			if tt.setupFunc != nil {
				var cleanup func()
				source, cleanup = tt.setupFunc(t)
				defer cleanup()
			}

			reader, err := fetch.Open(context.Background(), source)

			if tt.expectError {
				if err == nil {
					reader.Close()
					t.Error("Open() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer reader.Close()

			data, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("reading source: %v", err)
			}
			if string(data) != tt.expectData {
				t.Errorf("Open() data = %q, want %q", string(data), tt.expectData)
			}
		})
	}
}

func TestOpenStdin(t *testing.T) {
	// stdin routing only; the content itself is not mocked here
	reader, err := fetch.Open(context.Background(), "-")
	if err != nil {
		t.Fatalf("Open(-) error = %v", err)
	}
	if reader == nil {
		t.Fatal("Open(-) returned nil reader")
	}
	reader.Close()
}

func TestOpenErrorMessages(t *testing.T) {
	_, err := fetch.Open(context.Background(), "/no/such/snapshot.csv")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Open() error = %v, want file-does-not-exist message", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	_, err = fetch.Open(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Open() error = %v, want status message", err)
	}
}

func TestOpenContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fetch.Open(ctx, server.URL); err == nil {
		t.Error("Open() with cancelled context expected error")
	}
}
