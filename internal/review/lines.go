package review

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

type lineResult struct {
	line string
	err  error
}

// lineReader reads lines from a single goroutine. A read abandoned because
// its context ended is handed to the next caller, so reads never overlap.
type lineReader struct {
	r     *bufio.Reader
	once  sync.Once
	lines chan lineResult
	err   error
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r), lines: make(chan lineResult)}
}

func (l *lineReader) start() {
	go func() {
		for {
			line, err := l.r.ReadString('\n')
			if err != nil {
				if line != "" {
					l.lines <- lineResult{line: line}
				}
				l.err = err
				close(l.lines)
				return
			}
			l.lines <- lineResult{line: line}
		}
	}()
}

// readLine returns one trimmed line. A final line without a newline is
// returned before io.EOF. It gives up when ctx is done.
func (l *lineReader) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.once.Do(l.start)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-l.lines:
		if !ok {
			if l.err != nil && !errors.Is(l.err, io.EOF) {
				return "", l.err
			}
			return "", io.EOF
		}
		return strings.TrimSpace(res.line), nil
	}
}
