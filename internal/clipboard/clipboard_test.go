package clipboard

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func fakeFinder(goos string, installed []string, env map[string]string) finder {
	return finder{
		goos: goos,
		lookPath: func(name string) (string, error) {
			for _, n := range installed {
				if n == name {
					return "/usr/bin/" + name, nil
				}
			}
			return "", exec.ErrNotFound
		},
		getenv: func(k string) string { return env[k] },
	}
}

func TestFinder_Find(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		installed []string
		env       map[string]string
		want      string
		wantArgs  []string
	}{
		{name: "macOS", goos: "darwin", installed: []string{"pbcopy"}, want: "pbcopy"},
		{name: "wayland", goos: "linux", installed: []string{"wl-copy", "xclip"}, env: map[string]string{"WAYLAND_DISPLAY": "wayland-0"}, want: "wl-copy"},
		{name: "wl-copy without wayland", goos: "linux", installed: []string{"wl-copy", "xclip"}, want: "xclip", wantArgs: []string{"-selection", "clipboard"}},
		{name: "xsel fallback", goos: "linux", installed: []string{"xsel"}, want: "xsel", wantArgs: []string{"--clipboard", "--input"}},
		{name: "wsl", goos: "linux", installed: []string{"clip.exe"}, want: "clip.exe"},
		{name: "windows", goos: "windows", installed: []string{"clip"}, want: "clip"},
		{name: "freebsd", goos: "freebsd", installed: []string{"xclip"}, want: "xclip", wantArgs: []string{"-selection", "clipboard"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, path, err := fakeFinder(tt.goos, tt.installed, tt.env).find()
			if err != nil {
				t.Fatalf("find() error = %v", err)
			}
			if got.name != tt.want {
				t.Errorf("find() = %q, want %q", got.name, tt.want)
			}
			if path != "/usr/bin/"+tt.want {
				t.Errorf("path = %q", path)
			}
			if strings.Join(got.args, " ") != strings.Join(tt.wantArgs, " ") {
				t.Errorf("args = %v, want %v", got.args, tt.wantArgs)
			}
		})
	}
}

func TestFinder_Unavailable(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		installed []string
	}{
		{"nothing installed", "linux", nil},
		{"unsupported platform", "plan9", []string{"xclip"}},
		{"darwin without pbcopy", "darwin", []string{"xclip"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := fakeFinder(tt.goos, tt.installed, nil).find(); !errors.Is(err, ErrClipboardUnavailable) {
				t.Errorf("find() error = %v, want ErrClipboardUnavailable", err)
			}
		})
	}
}

func TestRun(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "clipboard.txt")
	script := filepath.Join(dir, "fakeclip")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncat > "+out+"\n"), 0755); err != nil {
		t.Fatal(err)
	}

	text := "feat: add greeting\n\nSays hello."
	if err := run(context.Background(), "fakeclip", script, nil, text); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != text {
		t.Errorf("clipboard got %q, want %q", got, text)
	}
}

func TestRun_Failure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	script := filepath.Join(t.TempDir(), "brokenclip")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 'Error: Can'\"'\"'t open display' >&2\nexit 1\n"), 0755); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), "brokenclip", script, nil, "x")
	if err == nil {
		t.Fatal("run() succeeded")
	}
	if !strings.Contains(err.Error(), "open display") || !strings.HasPrefix(err.Error(), "brokenclip: ") {
		t.Errorf("run() error = %q", err)
	}
}

func TestIsAvailable(t *testing.T) {
	// Availability depends on the host; it must agree with the lookup Copy uses.
	_, _, err := systemFinder().find()
	if IsAvailable() != (err == nil) {
		t.Errorf("IsAvailable() = %v but find() error = %v", IsAvailable(), err)
	}
}
