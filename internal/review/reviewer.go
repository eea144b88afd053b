// Package review handles the interactive parts of a commit: confirming or
// editing a generated message and choosing files to stage.
package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/matsen/aicommit/internal/message"
)

const confirmPrompt = "Use this commit message? [y/n/e]: "

const editHelp = `
# Write the commit message above. The first line is the title.
# Lines starting with '#' are ignored. An empty message keeps the previous one.
`

var (
	labelStyle = lipgloss.NewStyle().Faint(true)
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// Terminal reviews messages by prompting on a line-oriented terminal.
type Terminal struct {
	in     *lineReader
	out    io.Writer
	tty    bool
	editor string
	log    *zap.Logger
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithTTY overrides terminal detection on the input.
func WithTTY(tty bool) Option {
	return func(t *Terminal) {
		t.tty = tty
	}
}

// WithEditor sets the editor command. Empty forces inline editing.
func WithEditor(cmd string) Option {
	return func(t *Terminal) {
		t.editor = cmd
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Terminal) {
		if l != nil {
			t.log = l
		}
	}
}

// NewTerminal returns a reviewer reading answers from in and writing prompts
// to out. The editor defaults to EditorFromEnv(os.Getenv).
func NewTerminal(in io.Reader, out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		in:     newLineReader(in),
		out:    out,
		editor: EditorFromEnv(os.Getenv),
		log:    zap.NewNop(),
	}
	if f, ok := in.(*os.File); ok {
		t.tty = term.IsTerminal(int(f.Fd()))
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// EditorFromEnv returns the first of $GIT_EDITOR, $VISUAL and $EDITOR that is set.
func EditorFromEnv(getenv func(string) string) string {
	for _, key := range []string{"GIT_EDITOR", "VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// Review shows msg and asks whether to use it. It returns the message to
// commit (possibly edited) and whether it was accepted. End of input counts
// as a rejection.
func (t *Terminal) Review(ctx context.Context, msg message.CommitMessage) (message.CommitMessage, bool, error) {
	for {
		t.show(msg)
		fmt.Fprint(t.out, confirmPrompt)

		answer, err := t.in.readLine(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(t.out)
			t.log.Debug("review input closed, rejecting")
			return msg, false, nil
		}
		if err != nil {
			return msg, false, err
		}

		switch strings.ToLower(answer) {
		case "y", "yes", "s", "si", "sí":
			return msg, true, nil
		case "n", "no":
			return msg, false, nil
		case "e", "edit":
			edited, err := t.edit(ctx, msg)
			if errors.Is(err, message.ErrEmptyMessage) {
				fmt.Fprintln(t.out, "Empty message, keeping the previous one.")
				continue
			}
			if err != nil {
				return msg, false, err
			}
			msg = edited
		default:
			fmt.Fprintln(t.out, "Please answer y, n or e.")
		}
	}
}

func (t *Terminal) show(msg message.CommitMessage) {
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, labelStyle.Render("Proposed commit message:"))
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, "  "+titleStyle.Render(msg.Title))
	if msg.Body != "" {
		fmt.Fprintln(t.out)
		for _, line := range strings.Split(msg.Body, "\n") {
			fmt.Fprintln(t.out, strings.TrimRight("  "+line, " "))
		}
	}
	fmt.Fprintln(t.out)
}

func (t *Terminal) edit(ctx context.Context, msg message.CommitMessage) (message.CommitMessage, error) {
	if t.tty && t.editor != "" {
		return t.editInEditor(ctx, msg)
	}
	return t.editInline(ctx, msg)
}

// editInEditor opens the message in the user's editor the way git does:
// the editor string is run by the shell with the file as its argument.
func (t *Terminal) editInEditor(ctx context.Context, msg message.CommitMessage) (message.CommitMessage, error) {
	f, err := os.CreateTemp("", "AICOMMIT_EDITMSG-*")
	if err != nil {
		return msg, fmt.Errorf("creating message file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(msg.String() + "\n" + editHelp); err != nil {
		f.Close()
		return msg, fmt.Errorf("writing message file: %w", err)
	}
	if err := f.Close(); err != nil {
		return msg, fmt.Errorf("writing message file: %w", err)
	}

	t.log.Debug("opening editor", zap.String("editor", t.editor), zap.String("file", path))

	cmd := exec.CommandContext(ctx, "sh", "-c", t.editor+` "$@"`, t.editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return msg, fmt.Errorf("running editor %q: %w", t.editor, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return msg, fmt.Errorf("reading message file: %w", err)
	}
	return message.FromEdited(string(data))
}

// editInline asks for a new title and description on the prompt. Empty
// answers keep the current values.
func (t *Terminal) editInline(ctx context.Context, msg message.CommitMessage) (message.CommitMessage, error) {
	fmt.Fprintf(t.out, "Title [%s]: ", msg.Title)
	title, err := t.in.readLine(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		return msg, err
	}
	if title != "" {
		msg.Title = title
	}

	fmt.Fprintln(t.out, "Description (end with an empty line, leave empty to keep the current one):")
	var lines []string
	for {
		line, err := t.in.readLine(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return msg, err
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		msg.Body = strings.Join(lines, "\n")
	}

	return msg, nil
}
