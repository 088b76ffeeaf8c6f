package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEnvFileMissing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nonexistent")); err != nil {
		t.Fatalf("missing file should be a no-op: %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeEnvFile(t, "ENVTEST_A=one\n# comment\nexport ENVTEST_B='two words'\nnot a pair\n")
	t.Setenv("ENVTEST_A", "")
	os.Unsetenv("ENVTEST_A")
	t.Setenv("ENVTEST_B", "")
	os.Unsetenv("ENVTEST_B")
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("ENVTEST_A"); got != "one" {
		t.Errorf("ENVTEST_A = %q, want %q", got, "one")
	}
	if got := os.Getenv("ENVTEST_B"); got != "two words" {
		t.Errorf("ENVTEST_B = %q, want %q", got, "two words")
	}
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	path := writeEnvFile(t, "ENVTEST_KEEP=from_file\n")
	t.Setenv("ENVTEST_KEEP", "from_env")
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("ENVTEST_KEEP"); got != "from_env" {
		t.Errorf("ENVTEST_KEEP = %q, real environment should win", got)
	}
}
