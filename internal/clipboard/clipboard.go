// Package clipboard copies text to the system clipboard via shell commands.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard command is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// tool is one clipboard command and the arguments that make it read stdin.
type tool struct {
	name string
	args []string
	// env, when set, must be non-empty for the tool to be usable.
	env string
}

var (
	pbcopy  = tool{name: "pbcopy"}
	wlCopy  = tool{name: "wl-copy", env: "WAYLAND_DISPLAY"}
	xclip   = tool{name: "xclip", args: []string{"-selection", "clipboard"}}
	xsel    = tool{name: "xsel", args: []string{"--clipboard", "--input"}}
	clipExe = tool{name: "clip.exe"}
	clip    = tool{name: "clip"}
)

// candidates lists clipboard commands per GOOS in order of preference.
// clip.exe covers WSL, where Linux binaries can call the Windows clipboard.
var candidates = map[string][]tool{
	"darwin":  {pbcopy},
	"linux":   {wlCopy, xclip, xsel, clipExe},
	"freebsd": {wlCopy, xclip, xsel},
	"openbsd": {wlCopy, xclip, xsel},
	"windows": {clip},
}

// finder resolves the command for a platform.
type finder struct {
	goos     string
	lookPath func(string) (string, error)
	getenv   func(string) string
}

func systemFinder() finder {
	return finder{goos: runtime.GOOS, lookPath: exec.LookPath, getenv: os.Getenv}
}

func (f finder) find() (tool, string, error) {
	for _, t := range candidates[f.goos] {
		if t.env != "" && f.getenv(t.env) == "" {
			continue
		}
		if path, err := f.lookPath(t.name); err == nil {
			return t, path, nil
		}
	}
	return tool{}, "", ErrClipboardUnavailable
}

// IsAvailable checks if clipboard functionality is available on this system.
func IsAvailable() bool {
	_, _, err := systemFinder().find()
	return err == nil
}

// Copy copies the given text to the system clipboard.
// Returns ErrClipboardUnavailable if clipboard access is not available.
func Copy(ctx context.Context, text string) error {
	t, path, err := systemFinder().find()
	if err != nil {
		return err
	}
	return run(ctx, t.name, path, t.args, text)
}

func run(ctx context.Context, name, path string, args []string, text string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = strings.NewReader(text)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if detail := strings.TrimSpace(string(out)); detail != "" {
			return fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
