package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dfryer1193/dailycomic/comic/domain"
)

func TestClient_FetchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != UserAgent {
			t.Errorf("User-Agent = %q, want %q", r.Header.Get("User-Agent"), UserAgent)
		}
		w.Write([]byte("PNGDATA"))
	}))
	defer srv.Close()

	body, err := NewClient(time.Second).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != "PNGDATA" {
		t.Errorf("body = %q, want %q", body, "PNGDATA")
	}
}

func TestClient_FetchStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "server error", status: http.StatusInternalServerError},
		{name: "not found", status: http.StatusNotFound},
		{name: "no content", status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewClient(time.Second).Fetch(context.Background(), srv.URL)

			var netErr *domain.NetworkError
			if !errors.As(err, &netErr) {
				t.Fatalf("Expected *domain.NetworkError, got %v", err)
			}
			if netErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", netErr.StatusCode, tt.status)
			}
		})
	}
}

func TestClient_FetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(50*time.Millisecond).Fetch(context.Background(), srv.URL)
	if !domain.IsNetworkError(err) {
		t.Errorf("Expected network error on timeout, got %v", err)
	}
}

func TestClient_FetchConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	_, err = NewClient(time.Second).Fetch(context.Background(), "http://"+addr+"/feed")
	if !domain.IsNetworkError(err) {
		t.Errorf("Expected network error, got %v", err)
	}
}

func TestClient_FetchInvalidURL(t *testing.T) {
	_, err := NewClient(time.Second).Fetch(context.Background(), "://not a url")
	if err == nil {
		t.Fatal("Expected error for invalid URL")
	}
	if domain.IsNetworkError(err) {
		t.Errorf("Invalid URL should not be reported as a network error: %v", err)
	}
}

func TestClient_FetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(time.Second).Fetch(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if domain.IsNetworkError(err) {
		t.Errorf("Cancellation should not be reported as a network error: %v", err)
	}
}
