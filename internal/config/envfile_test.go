package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, EnvFileName)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestConfigDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	if got, want := ConfigDir(), filepath.Join(tmp, "aicommit"); got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestDefaultEnvFiles(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	files := DefaultEnvFiles("/work/repo")
	want := []string{"/work/repo/.env", filepath.Join(xdg, "aicommit", ".env")}
	if len(files) != len(want) {
		t.Fatalf("DefaultEnvFiles() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("DefaultEnvFiles()[%d] = %q, want %q", i, files[i], want[i])
		}
	}

	if files := DefaultEnvFiles(""); len(files) != 1 {
		t.Errorf("DefaultEnvFiles(\"\") = %v, want only the user file", files)
	}
}

func TestLoadEnvFiles_Precedence(t *testing.T) {
	repoDir := t.TempDir()
	userDir := t.TempDir()

	repoEnv := writeEnvFile(t, repoDir, "AICOMMIT_TEST_MODEL=repo\nAICOMMIT_TEST_ONLY_REPO=1\n")
	userEnv := writeEnvFile(t, userDir, "AICOMMIT_TEST_MODEL=user\nAICOMMIT_TEST_ONLY_USER=1\n")

	t.Setenv("AICOMMIT_TEST_PROCESS", "process")
	for _, k := range []string{"AICOMMIT_TEST_MODEL", "AICOMMIT_TEST_ONLY_REPO", "AICOMMIT_TEST_ONLY_USER"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	missing := filepath.Join(t.TempDir(), ".env")
	loaded, err := LoadEnvFiles(repoEnv, missing, userEnv)
	if err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("loaded = %v, want 2 files", loaded)
	}

	if got := os.Getenv("AICOMMIT_TEST_MODEL"); got != "repo" {
		t.Errorf("AICOMMIT_TEST_MODEL = %q, want repo (first file wins)", got)
	}
	if os.Getenv("AICOMMIT_TEST_ONLY_USER") != "1" || os.Getenv("AICOMMIT_TEST_ONLY_REPO") != "1" {
		t.Error("keys from both files should be loaded")
	}
}

func TestLoadEnvFiles_ProcessEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := writeEnvFile(t, dir, "AICOMMIT_TEST_KEY=from-file\n")
	t.Setenv("AICOMMIT_TEST_KEY", "from-env")

	if _, err := LoadEnvFiles(path); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}
	if got := os.Getenv("AICOMMIT_TEST_KEY"); got != "from-env" {
		t.Errorf("AICOMMIT_TEST_KEY = %q, want from-env", got)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	if !errors.Is(err, ErrEnvFileNotFound) {
		t.Errorf("LoadEnvFile() error = %v, want ErrEnvFileNotFound", err)
	}
}
