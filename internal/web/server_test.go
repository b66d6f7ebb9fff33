package web

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, rps int) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	s := NewServer(dir, rps)
	t.Cleanup(func() { close(s.broadcast) })
	return s, dir
}

func TestManifestEndpoint(t *testing.T) {
	s, dir := newTestServer(t, 0)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/manifest", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("status = %d before any run, want 404", resp.StatusCode)
	}

	manifest := `{"tool":"busforge","entries":[]}`
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/manifest", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != manifest {
		t.Errorf("body = %q, want the manifest", body)
	}
}

func TestDatasetEndpoint(t *testing.T) {
	s, dir := newTestServer(t, 0)
	content := `{"label":"interleave","shape":[4,5,64],"sequences":[]}`
	if err := os.WriteFile(filepath.Join(dir, "interleave.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/datasets/interleave.json", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != content {
		t.Errorf("body = %q, want the dataset", body)
	}

	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/datasets/missing.json", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("status = %d for unknown dataset, want 404", resp.StatusCode)
	}
}

func TestDatasetEndpointRejectsTraversal(t *testing.T) {
	s, dir := newTestServer(t, 0)
	secret := filepath.Join(filepath.Dir(dir), "secret.txt")
	if err := os.WriteFile(secret, []byte("keep out"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/datasets/..%2fsecret.txt", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("status = %d for traversal attempt, want 400", resp.StatusCode)
	}
}

func TestDatasetEndpointRateLimit(t *testing.T) {
	s, dir := newTestServer(t, 1)
	if err := os.WriteFile(filepath.Join(dir, "d.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := s.App().Test(httptest.NewRequest("GET", "/api/datasets/d.json", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.StatusCode != 200 {
		t.Fatalf("first request status = %d, want 200", first.StatusCode)
	}

	// Burst of 1 is spent, the immediate follow-up is throttled.
	second, err := s.App().Test(httptest.NewRequest("GET", "/api/datasets/d.json", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.StatusCode != 429 {
		t.Errorf("second request status = %d, want 429", second.StatusCode)
	}
	body, _ := io.ReadAll(second.Body)
	if !strings.Contains(string(body), "rate limit") {
		t.Errorf("throttled body = %q", body)
	}
}

func TestWebSocketRouteRequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t, 0)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 426 {
		t.Errorf("status = %d for plain GET, want 426", resp.StatusCode)
	}
}
