package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrNotGitRepo indicates the directory is not a git repository.
var ErrNotGitRepo = errors.New("not a git repository")

// ErrNoChanges indicates the requested scope has nothing to commit.
var ErrNoChanges = errors.New("no changes to commit")

// ErrOutsideRepo indicates a path that is not inside the working tree.
var ErrOutsideRepo = errors.New("path is outside the repository")

// ErrDetachedHead indicates HEAD does not point at a branch.
var ErrDetachedHead = errors.New("HEAD is detached")

// CommandError describes a git invocation that exited unsuccessfully.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	op := "git"
	if len(e.Args) > 0 {
		op = "git " + e.Args[0]
	}
	if e.Stderr != "" {
		return op + ": " + e.Stderr
	}
	return op + ": " + e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Repo runs git commands against one working tree.
type Repo struct {
	root   string
	binary string
	log    *zap.Logger
}

// Option configures a Repo.
type Option func(*Repo)

// WithLogger sets the logger used for command tracing.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repo) {
		if l != nil {
			r.log = l
		}
	}
}

// WithBinary sets the git executable. Default is "git" from PATH.
func WithBinary(path string) Option {
	return func(r *Repo) {
		r.binary = path
	}
}

// findRoot runs git rev-parse in path and returns the top level of the
// working tree.
func findRoot(ctx context.Context, binary, path string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, "-C", path, "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return "", fmt.Errorf("running git: %w", err)
		}
		return "", fmt.Errorf("%w: %s", ErrNotGitRepo, path)
	}
	return strings.TrimSpace(string(output)), nil
}

// Open returns a Repo rooted at the top level of the repository containing path.
func Open(ctx context.Context, path string, opts ...Option) (*Repo, error) {
	if path == "" {
		path = "."
	}

	r := &Repo{binary: "git", log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	root, err := findRoot(ctx, r.binary, path)
	if err != nil {
		return nil, err
	}
	r.root = root

	r.log.Debug("opened repository", zap.String("root", r.root))
	return r, nil
}

// Root returns the absolute path of the working tree.
func (r *Repo) Root() string {
	return r.root
}

// RelPath resolves path against dir when it is relative and returns it
// relative to the repository root, in the slash form git expects. Symlinked
// parent directories are resolved; the final element is not, so a symlink is
// staged as a link.
func (r *Repo) RelPath(dir, path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			dir = resolved
		}
		abs = filepath.Join(dir, abs)
	}
	abs = filepath.Clean(abs)

	root := r.root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if parent, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(parent, filepath.Base(abs))
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRepo, path)
	}
	return filepath.ToSlash(rel), nil
}

// run executes git in the repository root and returns stdout.
func (r *Repo) run(ctx context.Context, args ...string) ([]byte, error) {
	return r.runInput(ctx, nil, args...)
}

// runInput is run with stdin attached.
func (r *Repo) runInput(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error) {
	out, err := r.exec(ctx, stdin, args...)
	if err != nil {
		var ce *CommandError
		if errors.As(err, &ce) && ce.ExitCode == 1 && len(args) > 0 && args[0] == "diff" && containsArg(args, "--no-index") {
			// diff --no-index exits 1 when the inputs differ.
			return out, nil
		}
		return nil, err
	}
	return out, nil
}

func (r *Repo) exec(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error) {
	full := append([]string{"-C", r.root}, args...)
	cmd := exec.CommandContext(ctx, r.binary, full...)
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("git", zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("git %s: %w", args[0], ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		ce := &CommandError{Args: args, ExitCode: -1, Stderr: msg, Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ce.ExitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), ce
	}
	return stdout.Bytes(), nil
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

// HasCommits reports whether HEAD resolves to a commit.
func (r *Repo) HasCommits(ctx context.Context) bool {
	_, err := r.run(ctx, "rev-parse", "--verify", "-q", "HEAD")
	return err == nil
}

// CurrentBranch returns the branch HEAD points at. It works on a branch with
// no commits yet and returns ErrDetachedHead when HEAD is detached.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		var ce *CommandError
		if errors.As(err, &ce) && ce.ExitCode == 1 {
			return "", ErrDetachedHead
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ShortSHA abbreviates a commit SHA to seven characters, as git does by default.
func ShortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
