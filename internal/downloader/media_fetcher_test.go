package downloader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/iconidentify/instagrab/internal/config"
	"github.com/iconidentify/instagrab/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.ProxyConfig {
	return config.ProxyConfig{
		Timeout:            2 * time.Second,
		MinBodyBytes:       5000,
		MaxBodyBytes:       1 << 20,
		BlockedTypes:       []string{"text/html"},
		DefaultContentType: "image/jpeg",
		UserAgent:          "test-agent",
		Referer:            "https://www.instagram.com/",
		AcceptLanguage:     "en-US,en;q=0.9",
	}
}

func mediaServer(contentType string, size int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(bytes.Repeat([]byte{0xFF}, size))
	}))
}

func assertFailure(t *testing.T, err error, want domain.FailureKind) *domain.FetchError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s failure, got success", want)
	}
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error %v is not a *domain.FetchError", err)
	}
	if fe.Kind != want {
		t.Fatalf("Kind = %q (%s), want %q", fe.Kind, fe.Message, want)
	}
	return fe
}

func TestMediaFetcher_Fetch_Success(t *testing.T) {
	server := mediaServer("image/jpeg", 6000)
	defer server.Close()

	f := NewMediaFetcher(testConfig(), testLogger())
	payload, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if payload.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q, want image/jpeg", payload.ContentType)
	}
	if payload.ByteLength() != 6000 {
		t.Errorf("ByteLength() = %d, want 6000", payload.ByteLength())
	}
}

func TestMediaFetcher_Fetch_DisguisedHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		checks := map[string]string{
			"User-Agent":      "test-agent",
			"Referer":         "https://www.instagram.com/",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
		}
		for header, want := range checks {
			if got := r.Header.Get(header); got != want {
				t.Errorf("%s = %q, want %q", header, got, want)
			}
		}
		if r.Header.Get("Accept") == "" {
			t.Error("Accept header should be set")
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(make([]byte, 5000))
	}))
	defer server.Close()

	f := NewMediaFetcher(testConfig(), testLogger())
	if _, err := f.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
}

func TestMediaFetcher_Fetch_SecFetchDestMatchesMediaKind(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/v/t51/photo.jpg", "image"},
		{"/v/t51/photo.webp", "image"},
		{"/o1/v/t16/clip.mp4", "video"},
		{"/o1/v/t16/CLIP.MP4", "video"},
		{"/o1/v/t16/clip.webm", "video"},
		{"/no-extension", "image"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			dest := make(chan string, 1)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				dest <- r.Header.Get("Sec-Fetch-Dest")
				w.Header().Set("Content-Type", "application/octet-stream")
				w.Write(make([]byte, 5000))
			}))
			defer server.Close()

			f := NewMediaFetcher(testConfig(), testLogger())
			if _, err := f.Fetch(context.Background(), server.URL+tt.path+"?stp=dst-jpg&_nc_ht=cdn"); err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			if got := <-dest; got != tt.want {
				t.Errorf("Sec-Fetch-Dest = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMediaFetcher_Fetch_SizeThreshold(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		wantKind domain.FailureKind
	}{
		{"4999 bytes is too small", 4999, domain.FailureTooSmall},
		{"empty body is too small", 0, domain.FailureTooSmall},
		{"5000 bytes succeeds", 5000, ""},
		{"5001 bytes succeeds", 5001, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mediaServer("image/png", tt.size)
			defer server.Close()

			f := NewMediaFetcher(testConfig(), testLogger())
			payload, err := f.Fetch(context.Background(), server.URL)

			if tt.wantKind != "" {
				assertFailure(t, err, tt.wantKind)
				if payload != nil {
					t.Error("payload should be nil on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			if payload.ByteLength() != tt.size {
				t.Errorf("ByteLength() = %d, want %d", payload.ByteLength(), tt.size)
			}
		})
	}
}

func TestMediaFetcher_Fetch_HTMLIsBlocked(t *testing.T) {
	contentTypes := []string{
		"text/html",
		"text/html; charset=utf-8",
		"TEXT/HTML",
	}

	for _, ct := range contentTypes {
		for _, size := range []int{10, 5000, 50000} {
			t.Run(ct+"/"+strconv.Itoa(size), func(t *testing.T) {
				server := mediaServer(ct, size)
				defer server.Close()

				f := NewMediaFetcher(testConfig(), testLogger())
				payload, err := f.Fetch(context.Background(), server.URL)
				assertFailure(t, err, domain.FailureUpstreamBlocked)
				if payload != nil {
					t.Error("payload should be nil for blocked response")
				}
			})
		}
	}
}

func TestMediaFetcher_Fetch_ConfigurableBlockedTypes(t *testing.T) {
	server := mediaServer("application/json", 6000)
	defer server.Close()

	cfg := testConfig()
	cfg.BlockedTypes = []string{"text/html", "application/json"}

	f := NewMediaFetcher(cfg, testLogger())
	_, err := f.Fetch(context.Background(), server.URL)
	assertFailure(t, err, domain.FailureUpstreamBlocked)
}

func TestMediaFetcher_Fetch_ConfigurableMinimum(t *testing.T) {
	server := mediaServer("image/gif", 100)
	defer server.Close()

	cfg := testConfig()
	cfg.MinBodyBytes = 50

	f := NewMediaFetcher(cfg, testLogger())
	if _, err := f.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch failed with lowered minimum: %v", err)
	}
}

func TestMediaFetcher_Fetch_DefaultContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Suppress content sniffing so no Content-Type is sent
		w.Header()["Content-Type"] = nil
		w.Write(make([]byte, 6000))
	}))
	defer server.Close()

	f := NewMediaFetcher(testConfig(), testLogger())
	payload, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if payload.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q, want default image/jpeg", payload.ContentType)
	}
}

func TestMediaFetcher_Fetch_Non2xx(t *testing.T) {
	statuses := []int{http.StatusForbidden, http.StatusNotFound, http.StatusTooManyRequests, http.StatusInternalServerError}

	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/jpeg")
				w.WriteHeader(status)
				w.Write(make([]byte, 6000))
			}))
			defer server.Close()

			f := NewMediaFetcher(testConfig(), testLogger())
			_, err := f.Fetch(context.Background(), server.URL)
			fe := assertFailure(t, err, domain.FailureNetwork)
			if !strings.Contains(fe.Message, strconv.Itoa(status)) {
				t.Errorf("Message %q should mention status %d", fe.Message, status)
			}
		})
	}
}

func TestMediaFetcher_Fetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(make([]byte, 7000))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewMediaFetcher(testConfig(), testLogger())
	payload, err := f.Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if payload.ContentType != "video/mp4" {
		t.Errorf("ContentType = %q, want video/mp4", payload.ContentType)
	}
}

func TestMediaFetcher_Fetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond

	f := NewMediaFetcher(cfg, testLogger())
	payload, err := f.Fetch(context.Background(), server.URL)
	assertFailure(t, err, domain.FailureTimeout)
	if payload != nil {
		t.Error("payload should be nil on timeout")
	}
}

func TestMediaFetcher_Fetch_TimeoutWhileReadingBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(make([]byte, 1024))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Timeout = 100 * time.Millisecond

	f := NewMediaFetcher(cfg, testLogger())
	_, err := f.Fetch(context.Background(), server.URL)
	assertFailure(t, err, domain.FailureTimeout)
}

func TestMediaFetcher_Fetch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	f := NewMediaFetcher(testConfig(), testLogger())
	_, err := f.Fetch(context.Background(), serverURL)
	assertFailure(t, err, domain.FailureNetwork)
}

func TestMediaFetcher_Fetch_UnsupportedScheme(t *testing.T) {
	f := NewMediaFetcher(testConfig(), testLogger())
	_, err := f.Fetch(context.Background(), "ftp://example.com/a.jpg")
	assertFailure(t, err, domain.FailureNetwork)
}

func TestMediaFetcher_Fetch_MalformedURL(t *testing.T) {
	f := NewMediaFetcher(testConfig(), testLogger())
	_, err := f.Fetch(context.Background(), "http://[::1")
	assertFailure(t, err, domain.FailureUnknown)
}

func TestMediaFetcher_Fetch_BodyTooLarge(t *testing.T) {
	server := mediaServer("video/mp4", 20000)
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 10000

	f := NewMediaFetcher(cfg, testLogger())
	_, err := f.Fetch(context.Background(), server.URL)
	assertFailure(t, err, domain.FailureUnknown)
}

func TestMediaFetcher_Fetch_IgnoresCallerCancellation(t *testing.T) {
	server := mediaServer("image/jpeg", 6000)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewMediaFetcher(testConfig(), testLogger())
	if _, err := f.Fetch(ctx, server.URL); err != nil {
		t.Fatalf("Fetch should run to completion despite canceled context: %v", err)
	}
}

func TestMediaFetcher_Fetch_PreRequestDelay(t *testing.T) {
	server := mediaServer("image/jpeg", 6000)
	defer server.Close()

	cfg := testConfig()
	cfg.Delay = 30 * time.Millisecond

	f := NewMediaFetcher(cfg, testLogger())
	start := time.Now()
	if _, err := f.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("elapsed = %v, want at least the 30ms delay", elapsed)
	}
}

func TestMediaFetcher_Fetch_Concurrent(t *testing.T) {
	server := mediaServer("image/jpeg", 6000)
	defer server.Close()

	f := NewMediaFetcher(testConfig(), testLogger())
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := f.Fetch(context.Background(), server.URL)
			errs <- err
		}()
	}
	for i := 0; i < 10; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent Fetch failed: %v", err)
		}
	}
}

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.FailureKind
	}{
		{"deadline", context.DeadlineExceeded, domain.FailureTimeout},
		{"canceled", context.Canceled, domain.FailureUnknown},
		{"generic", io.ErrUnexpectedEOF, domain.FailureNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTransportError(tt.err).Kind; got != tt.want {
				t.Errorf("classifyTransportError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
