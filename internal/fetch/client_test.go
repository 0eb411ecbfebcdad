package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestServer serves a small site used across tests.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Test Page</title></head>` +
			`<body><a href="/next">next</a><p>` + r.Header.Get("User-Agent") + `|` + r.Header.Get("Referer") + `</p></body></html>`))
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	mux.HandleFunc("/img/photo.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="named.png"`)
		_, _ = w.Write([]byte("png"))
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// TestNewClient tests the Client constructor.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("direct client", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.ProxyAddress() != "" {
			t.Errorf("expected no proxy, got %q", client.ProxyAddress())
		}
	})

	t.Run("valid proxy address creates client", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(WithProxy("127.0.0.1:1080"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.ProxyAddress() != "127.0.0.1:1080" {
			t.Errorf("ProxyAddress() = %q, expected %q", client.ProxyAddress(), "127.0.0.1:1080")
		}
	})

	t.Run("invalid proxy address returns error", func(t *testing.T) {
		t.Parallel()

		_, err := NewClient(WithProxy("127.0.0.1"))
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})
}

// TestIsValidProxyAddress tests proxy address validation.
func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		valid   bool
	}{
		{"127.0.0.1:9050", true},
		{"localhost:1080", true},
		{"host:65535", true},
		{"", false},
		{"127.0.0.1", false},
		{":9050", false},
		{"host:", false},
		{"host:0", false},
		{"host:65536", false},
		{"host:90a0", false},
		{"a:b:c", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tt.address); got != tt.valid {
				t.Errorf("isValidProxyAddress(%q) = %v, expected %v", tt.address, got, tt.valid)
			}
		})
	}
}

// TestFetchDocument tests document fetching and parsing.
func TestFetchDocument(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	t.Run("parses title and sends headers", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(WithUserAgent("walker-test/1.0"))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		doc, err := client.FetchDocument(context.Background(), server.URL+"/page", server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.Title != "Test Page" {
			t.Errorf("expected title 'Test Page', got %q", doc.Title)
		}
		if doc.FinalURL != server.URL+"/page" {
			t.Errorf("unexpected final URL %q", doc.FinalURL)
		}
		text := doc.Document.Find("p").Text()
		if text != "walker-test/1.0|"+server.URL+"/" {
			t.Errorf("unexpected echoed headers %q", text)
		}
		if href, _ := doc.Document.Find("a").Attr("href"); href != "/next" {
			t.Errorf("expected verbatim href '/next', got %q", href)
		}
	})

	t.Run("follows redirects", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		doc, err := client.FetchDocument(context.Background(), server.URL+"/redirect", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.FinalURL != server.URL+"/page" {
			t.Errorf("expected final URL after redirect, got %q", doc.FinalURL)
		}
	})

	t.Run("relative url resolves against referrer", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		doc, err := client.FetchDocument(context.Background(), "/page", server.URL+"/index.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.Title != "Test Page" {
			t.Errorf("expected title 'Test Page', got %q", doc.Title)
		}
	})

	t.Run("non 2xx status is a transport error", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		_, err = client.FetchDocument(context.Background(), server.URL+"/missing", "")
		if !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected *StatusError with 404, got %v", err)
		}
	})

	t.Run("unsupported urls are rejected", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		for _, u := range []string{"mailto:a@example.test", "/relative", "ftp://example.test/x"} {
			_, err := client.FetchDocument(context.Background(), u, "")
			if !errors.Is(err, ErrUnsupportedURL) || !errors.Is(err, ErrTransport) {
				t.Errorf("%s: expected ErrUnsupportedURL, got %v", u, err)
			}
		}
	})

	t.Run("network failure is a transport error", func(t *testing.T) {
		t.Parallel()

		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL := dead.URL
		dead.Close()

		client, err := NewClient(WithTimeout(2 * time.Second))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		_, err = client.FetchDocument(context.Background(), deadURL+"/", "")
		if !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})
}

// TestFetchBytes tests resource downloads.
func TestFetchBytes(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	client, err := NewClient(WithMaxBodySize(50))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	t.Run("name from path", func(t *testing.T) {
		t.Parallel()

		res, err := client.FetchBytes(context.Background(), server.URL+"/img/photo.jpg", server.URL+"/page")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Bytes) != 4 || res.ContentType != "image/jpeg" {
			t.Errorf("unexpected resource %d bytes, %q", len(res.Bytes), res.ContentType)
		}
		if res.SuggestedName != "photo.jpg" {
			t.Errorf("expected suggested name 'photo.jpg', got %q", res.SuggestedName)
		}
	})

	t.Run("name from content disposition", func(t *testing.T) {
		t.Parallel()

		res, err := client.FetchBytes(context.Background(), server.URL+"/download", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.SuggestedName != "named.png" {
			t.Errorf("expected suggested name 'named.png', got %q", res.SuggestedName)
		}
	})

	t.Run("body over the limit is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := client.FetchBytes(context.Background(), server.URL+"/big", "")
		if !errors.Is(err, ErrBodyTooLarge) || !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrBodyTooLarge, got %v", err)
		}
	})
}

// TestRequestInterval tests that requests share one limiter.
func TestRequestInterval(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	interval := 100 * time.Millisecond
	client, err := NewClient(WithRequestInterval(interval))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	ctx := context.Background()
	start := time.Now()
	if _, err := client.FetchDocument(ctx, server.URL+"/a", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.FetchBytes(ctx, server.URL+"/b", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.FetchDocument(ctx, server.URL+"/c", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	if hits.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", hits.Load())
	}
	// The first request passes immediately; the next two each wait one interval.
	if elapsed < 2*interval-10*time.Millisecond {
		t.Errorf("expected at least %v between requests, took %v", 2*interval, elapsed)
	}

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.FetchDocument(cctx, server.URL+"/d", "")
		if !errors.Is(err, ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})
}

// TestHeaderInjectingTransport tests static header injection.
func TestHeaderInjectingTransport(t *testing.T) {
	t.Parallel()

	received := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		received <- r.Header.Clone()
	}))
	defer server.Close()

	transport := &headerInjectingTransport{
		base: http.DefaultTransport,
		headers: map[string]string{
			"X-Custom-Header": "custom-value",
			"Accept":          "text/plain",
		},
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = resp.Body.Close()

	got := <-received
	if got.Get("X-Custom-Header") != "custom-value" {
		t.Error("expected custom header to be set")
	}
	if got.Get("Accept") != "text/html" {
		t.Errorf("request header should win, got %q", got.Get("Accept"))
	}
	if req.Header.Get("X-Custom-Header") != "" {
		t.Error("original request must not be modified")
	}
}
