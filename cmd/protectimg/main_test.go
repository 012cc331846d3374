package main

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 48, 32))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 5, G: 5, B: 5, A: 255}), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	payload := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cover.png":
			w.Header().Set("Access-Control-Allow-Origin", "*")
			_, _ = w.Write(payload)
		case "/private.png":
			_, _ = w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	base := []string{"--config", filepath.Join(t.TempDir(), "absent.toml"), "--log-format", "json"}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRenderWritesWatermarkedPNG(t *testing.T) {
	srv := newImageServer(t)
	out := filepath.Join(t.TempDir(), "cover.png")

	stdout, _, err := runCLI(t, "render", srv.URL+"/cover.png", "-o", out)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(stdout, "Processed") {
		t.Fatalf("unexpected output %q", stdout)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 48 || cfg.Height != 32 {
		t.Fatalf("unexpected output size %dx%d", cfg.Width, cfg.Height)
	}
}

func TestRenderFallbackWritesProtectedHTML(t *testing.T) {
	srv := newImageServer(t)
	htmlPath := filepath.Join(t.TempDir(), "view.html")

	stdout, _, err := runCLI(t, "render", srv.URL+"/private.png", "--html", htmlPath, "--alt", "private")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(stdout, "refused pixel access") {
		t.Fatalf("unexpected output %q", stdout)
	}
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	if !strings.Contains(string(data), `class="protected-image"`) || !strings.Contains(string(data), `alt="private"`) {
		t.Fatalf("unexpected html %s", data)
	}
}

func TestRenderMissingImageFails(t *testing.T) {
	srv := newImageServer(t)
	_, _, err := runCLI(t, "render", srv.URL+"/missing.png", "-o", filepath.Join(t.TempDir(), "x.png"))
	if err == nil || !strings.Contains(err.Error(), "failed to load image") {
		t.Fatalf("expected load failure, got %v", err)
	}
}

func TestInspectReportsAttempts(t *testing.T) {
	srv := newImageServer(t)
	stdout, _, err := runCLI(t, "inspect", srv.URL+"/private.png")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	for _, want := range []string{"cross-origin", "same-origin-only", "failed", "decoded", "protected-node"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, stdout)
		}
	}

	stdout, _, err = runCLI(t, "inspect", srv.URL+"/cover.png")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(stdout, "watermark present=true") {
		t.Fatalf("expected watermark score line:\n%s", stdout)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	stdout, _, err := runCLI(t, "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(stdout, "[watermark]") {
		t.Fatalf("unexpected sample config %q", stdout)
	}

	stdout, _, err = runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(stdout, "horizontal_period = 100") {
		t.Fatalf("unexpected effective config %q", stdout)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example.com/albums/cover.jpg?x=1": "cover_protected.png",
		"https://cdn.example.com/":                     "output_protected.png",
		"local/photo.webp":                             "photo_protected.png",
	}
	for in, want := range cases {
		if got := defaultOutputPath(in); got != want {
			t.Fatalf("defaultOutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}
