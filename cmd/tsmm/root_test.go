package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/git-pkgs/tsmm/cache"
)

const mirrorListing = `[
  {
    "name": "ModX", "full_name": "AuthorA-ModX", "owner": "AuthorA",
    "date_created": "2023-01-01T00:00:00Z", "date_updated": "2023-06-01T00:00:00Z",
    "categories": ["Mods"], "rating_score": 5,
    "versions": [
      {"full_name": "AuthorA-ModX-2.0.0", "version_number": "2.0.0", "description": "Rewrite", "downloads": 30, "file_size": 2048,
       "dependencies": ["BepInEx-BepInExPack-5.4.2100"], "date_created": "2023-06-01T00:00:00Z",
       "download_url": "https://thunderstore.io/package/download/AuthorA/ModX/2.0.0/"},
      {"full_name": "AuthorA-ModX-1.2.0", "version_number": "1.2.0", "downloads": 20, "date_created": "2023-03-01T00:00:00Z",
       "download_url": "https://thunderstore.io/package/download/AuthorA/ModX/1.2.0/"},
      {"full_name": "AuthorA-ModX-1.0.0", "version_number": "1.0.0", "downloads": 10, "date_created": "2023-01-01T00:00:00Z"}
    ]
  },
  {
    "name": "OldMod", "full_name": "AuthorB-OldMod", "owner": "AuthorB", "is_deprecated": true,
    "date_created": "2020-01-01T00:00:00Z", "date_updated": "2020-01-01T00:00:00Z",
    "versions": [{"full_name": "AuthorB-OldMod-1.0.0", "version_number": "1.0.0", "downloads": 999, "date_created": "2020-01-01T00:00:00Z"}]
  },
  {
    "name": "ServerPack", "full_name": "AuthorC-ServerPack", "owner": "AuthorC", "categories": ["Modpacks"],
    "date_created": "2022-01-01T00:00:00Z", "date_updated": "2022-01-01T00:00:00Z",
    "versions": [{"full_name": "AuthorC-ServerPack-1.0.0", "version_number": "1.0.0", "downloads": 500, "date_created": "2022-01-01T00:00:00Z"}]
  }
]`

type testEnv struct {
	cacheDir  string
	configDir string
	mirrorDir string
	modsDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, key := range []string{"MANAGED_GAME", "MODS_DIR", "CACHE_DIR", "CONFIG_DIR", "REGISTRY", "REGISTRY_URL"} {
		t.Setenv("TSMM_"+key, "")
		_ = os.Unsetenv("TSMM_" + key)
	}

	env := &testEnv{
		cacheDir:  t.TempDir(),
		configDir: t.TempDir(),
		mirrorDir: t.TempDir(),
		modsDir:   t.TempDir(),
	}
	writeFile(t, filepath.Join(env.mirrorDir, "valheim.json"), mirrorListing)
	writeFile(t, filepath.Join(env.configDir, "requirements_valheim.json"), `{"AuthorA/ModX": "^1.0"}`)
	writeFile(t, filepath.Join(env.modsDir, "AuthorA-ModX", "manifest.json"), `{"name": "ModX", "version_number": "1.0.0"}`)
	return env
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// run executes tsmm against the test environment and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	base := []string{
		"-g", "valheim",
		"-d", e.modsDir,
		"--cache-dir", e.cacheDir,
		"--config-dir", e.configDir,
		"--registry", "mirror",
		"--registry-url", e.mirrorDir,
	}
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestFilesConfig(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "files", "config")
	if err != nil {
		t.Fatalf("files config failed: %v", err)
	}
	want := filepath.Join(env.configDir, "requirements_valheim.json")
	if strings.TrimSpace(out) != want {
		t.Errorf("files config = %q, want %q", out, want)
	}
}

func TestFilesCacheMissing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "files", "cache")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("files cache = %v, want ExitError code 1", err)
	}
	if !errors.Is(err, cache.ErrNoCache) {
		t.Errorf("error = %v, want ErrNoCache", err)
	}
	if !strings.Contains(err.Error(), "unable to locate a cache for valheim") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestRefreshStatusClean(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "refresh")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if !strings.Contains(out, "3 packages for valheim") {
		t.Errorf("refresh output = %q", out)
	}

	out, err = env.run(t, "files", "cache")
	if err != nil {
		t.Fatalf("files cache failed: %v", err)
	}
	path := strings.TrimSpace(out)
	if filepath.Dir(path) != env.cacheDir || !strings.HasPrefix(filepath.Base(path), "valheim_") || !strings.HasSuffix(path, ".bin") {
		t.Errorf("files cache = %q", path)
	}

	out, err = env.run(t, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, want := range []string{"Packages: 3", "Requirements: 1", path} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}

	out, err = env.run(t, "clean")
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if !strings.Contains(out, "Removed 1 cache file(s)") {
		t.Errorf("clean output = %q", out)
	}

	out, err = env.run(t, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "Last updated: N/A") {
		t.Errorf("status after clean:\n%s", out)
	}
}

func TestUpdateDryRun(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "update", "--refresh", "--dry-run")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	for _, want := range []string{"AuthorA/ModX", "1.0.0", "1.2.0", "1 update(s) available."} {
		if !strings.Contains(out, want) {
			t.Errorf("update output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "2.0.0") {
		t.Errorf("update suggested a version outside the constraint:\n%s", out)
	}
}

func TestUpdateWithoutDryRun(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "refresh"); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "update")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("update = %v, want ExitError code 2", err)
	}
	if !strings.Contains(out, "https://thunderstore.io/package/download/AuthorA/ModX/1.2.0/") {
		t.Errorf("update output missing download URL:\n%s", out)
	}
}

func TestUpdateUpToDate(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.modsDir, "AuthorA-ModX", "manifest.json"), `{"name": "ModX", "version_number": "2.0.0"}`)
	if _, err := env.run(t, "refresh"); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "update")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !strings.Contains(out, "All mods are up to date.") {
		t.Errorf("update output:\n%s", out)
	}
}

func TestUpdateUnknownMod(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "update", "--dry-run", "-m", "Nobody/Nothing"); err == nil {
		t.Error("expected error for a mod that is not installed")
	}
	if _, err := env.run(t, "update", "--dry-run", "-m", "not-a-key"); err == nil {
		t.Error("expected error for a malformed package key")
	}
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "refresh"); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "search")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, "AuthorA/ModX") {
		t.Errorf("search output missing AuthorA/ModX:\n%s", out)
	}
	for _, hidden := range []string{"AuthorB/OldMod", "AuthorC/ServerPack"} {
		if strings.Contains(out, hidden) {
			t.Errorf("search should hide %s:\n%s", hidden, out)
		}
	}

	out, err = env.run(t, "search", "nomatch")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No packages found.") {
		t.Errorf("search output:\n%s", out)
	}
}

func TestShow(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "refresh"); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "show", "AuthorA/ModX")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	for _, want := range []string{
		"Version: 2.0.0",
		"Requirement: ^1.0 -> 1.2.0",
		"pkg:thunderstore/AuthorA/ModX@2.0.0?community=valheim",
		"BepInEx/BepInExPack 5.4.2100",
		"Size: 2.0 KiB",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if _, err := env.run(t, "show", "Nobody/Nothing"); err == nil {
		t.Error("expected error for unknown package")
	}
}

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"managed_game", "valheim", "mirror"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestMissingGame(t *testing.T) {
	t.Setenv("TSMM_MANAGED_GAME", "")
	_ = os.Unsetenv("TSMM_MANAGED_GAME")

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--config-dir", t.TempDir(), "files", "config"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error without a managed game")
	}
}

func TestShowAsksDownloadHostForSize(t *testing.T) {
	var method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.Header().Set("Content-Length", "3145728")
	}))
	defer server.Close()

	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.mirrorDir, "valheim.json"), `[{
	  "name": "Sized", "full_name": "AuthorD-Sized", "owner": "AuthorD",
	  "date_created": "2023-01-01T00:00:00Z", "date_updated": "2023-01-01T00:00:00Z",
	  "versions": [{"full_name": "AuthorD-Sized-1.0.0", "version_number": "1.0.0", "date_created": "2023-01-01T00:00:00Z",
	    "download_url": "`+server.URL+`/package/download/AuthorD/Sized/1.0.0/"}]
	}]`)
	if _, err := env.run(t, "refresh"); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "show", "AuthorD/Sized")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if method != http.MethodHead {
		t.Errorf("download host saw %q, want HEAD", method)
	}
	if !strings.Contains(out, "Size: 3.0 MiB") {
		t.Errorf("show output missing archive size:\n%s", out)
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{3 << 20, "3.0 MiB"},
	}
	for _, tt := range tests {
		if got := humanSize(tt.n); got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
