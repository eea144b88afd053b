package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/matsen/aicommit/internal/git"
)

const selectPrompt = "Files to stage (e.g. 1 3, 2-4, a for all, q to cancel): "

var (
	// ErrCanceled indicates the user chose not to select anything.
	ErrCanceled = errors.New("selection canceled")

	// ErrInvalidSelection indicates input that names no valid file numbers.
	ErrInvalidSelection = errors.New("invalid selection")
)

// Candidate is a file that can be staged.
type Candidate struct {
	Path   string
	Status git.ChangeStatus
}

// Candidates lists the unstaged then untracked files of st.
func Candidates(st *git.Status) []Candidate {
	if st == nil {
		return nil
	}
	out := make([]Candidate, 0, len(st.Unstaged)+len(st.Untracked))
	for _, p := range st.Unstaged {
		out = append(out, Candidate{Path: p, Status: git.StatusUnstaged})
	}
	for _, p := range st.Untracked {
		out = append(out, Candidate{Path: p, Status: git.StatusUntracked})
	}
	return out
}

// Stager asks which files to stage.
type Stager struct {
	in  *lineReader
	out io.Writer
}

// NewStager returns a Stager reading from in and writing to out.
func NewStager(in io.Reader, out io.Writer) *Stager {
	return &Stager{in: newLineReader(in), out: out}
}

// Select lists files numbered from 1 and returns the chosen paths in list
// order. Invalid input is reported and asked again; empty input, "q" and end
// of input return ErrCanceled.
func (s *Stager) Select(ctx context.Context, files []Candidate) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	width := len(strconv.Itoa(len(files)))
	for i, f := range files {
		fmt.Fprintf(s.out, "  %*d) %s %s\n", width, i+1, labelStyle.Render("["+string(f.Status)+"]"), f.Path)
	}

	for {
		fmt.Fprint(s.out, selectPrompt)
		line, err := s.in.readLine(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil, ErrCanceled
		}
		if err != nil {
			return nil, err
		}

		idx, err := ParseSelection(line, len(files))
		if errors.Is(err, ErrInvalidSelection) {
			fmt.Fprintf(s.out, "%v\n", err)
			continue
		}
		if err != nil {
			return nil, err
		}

		paths := make([]string, len(idx))
		for i, n := range idx {
			paths[i] = files[n].Path
		}
		return paths, nil
	}
}

// ParseSelection turns input such as "1 3", "2-4", "1,5" or "all" into
// sorted, de-duplicated zero-based indexes into a list of n items.
func ParseSelection(input string, n int) ([]int, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	switch input {
	case "", "q", "quit":
		return nil, ErrCanceled
	case "a", "all", "*":
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	seen := make(map[int]bool)
	tokens := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	for _, tok := range tokens {
		lo, hi, err := parseRange(tok, n)
		if err != nil {
			return nil, err
		}
		for i := lo; i <= hi; i++ {
			seen[i-1] = true
		}
	}

	idx := make([]int, 0, len(seen))
	for i := range seen {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx, nil
}

// parseRange parses "3" or "2-4" as a one-based inclusive range within 1..n.
func parseRange(tok string, n int) (int, int, error) {
	loText, hiText, isRange := strings.Cut(tok, "-")
	if !isRange {
		hiText = loText
	}

	lo, errLo := strconv.Atoi(loText)
	hi, errHi := strconv.Atoi(hiText)
	if errLo != nil || errHi != nil {
		return 0, 0, fmt.Errorf("%w: %q is not a number or range", ErrInvalidSelection, tok)
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("%w: range %q is reversed", ErrInvalidSelection, tok)
	}
	if lo < 1 || hi > n {
		return 0, 0, fmt.Errorf("%w: %q is outside 1-%d", ErrInvalidSelection, tok, n)
	}
	return lo, hi, nil
}
