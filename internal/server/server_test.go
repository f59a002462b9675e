package server

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestNormalizeAddr(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"8080":           ":8080",
		":9090":          ":9090",
		"127.0.0.1:8080": "127.0.0.1:8080",
	}
	for in, want := range tests {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewHTTPServer_Timeouts(t *testing.T) {
	srv := newHTTPServer(":0", http.NotFoundHandler(), Timeouts{Write: 3 * time.Second})
	if srv.ReadHeaderTimeout != defaultReadHeaderTimeout {
		t.Fatalf("read header timeout: got %v", srv.ReadHeaderTimeout)
	}
	if srv.WriteTimeout != 3*time.Second {
		t.Fatalf("write timeout: got %v", srv.WriteTimeout)
	}
	if srv.IdleTimeout != defaultIdleTimeout {
		t.Fatalf("idle timeout: got %v", srv.IdleTimeout)
	}
	if srv.MaxHeaderBytes != maxHeaderBytes {
		t.Fatalf("max header bytes: got %d", srv.MaxHeaderBytes)
	}
}

func TestRunStopsCleanlyOnShutdown(t *testing.T) {
	s := New("127.0.0.1:0", http.NotFoundHandler(), Timeouts{})

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	// give ListenAndServe a moment to bind
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v after shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after shutdown")
	}
}
