// Package message parses model replies into commit messages and checks them
// against the Conventional Commits format.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyMessage indicates the reply contained no usable title.
var ErrEmptyMessage = errors.New("empty commit message")

// ErrUnparseable indicates the reply looked structured but could not be decoded.
var ErrUnparseable = errors.New("unparseable commit message")

// Types are the Conventional Commits types accepted in titles.
var Types = []string{"feat", "fix", "docs", "style", "refactor", "perf", "test", "build", "ci", "chore", "revert"}

// DefaultType prefixes titles that carry no recognised type.
const DefaultType = "chore"

var (
	conventionalRe = regexp.MustCompile(`^(` + strings.Join(Types, "|") + `)(\(.+\))?!?: .+`)
	looseTypeRe    = regexp.MustCompile(`(?i)^(` + strings.Join(Types, "|") + `)(\(.+\))?(!?)\s*:\s*(.+)$`)
	titleLabelRe   = regexp.MustCompile(`(?i)^(title|subject|commit message)\s*:\s*`)
	bodyLabelRe    = regexp.MustCompile(`(?i)^(description|body)\s*:\s*`)
	jsonTitleKeyRe = regexp.MustCompile(`(?i)"(title|subject)"\s*:`)
)

// CommitMessage is a title with an optional body.
type CommitMessage struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// String renders the message as git expects it: title, blank line, body.
func (m CommitMessage) String() string {
	if m.Body == "" {
		return m.Title
	}
	return m.Title + "\n\n" + m.Body
}

// reply is the JSON shape models are asked to produce.
type reply struct {
	Title       string          `json:"title"`
	Subject     string          `json:"subject"`
	Description json.RawMessage `json:"description"`
	Body        json.RawMessage `json:"body"`
}

// Parse turns a raw model reply into a CommitMessage.
// Markdown code fences are stripped; a JSON object with "title" and
// "description" (or "body") is preferred, otherwise the first non-empty line
// is the title and the remainder is the body.
func Parse(raw string) (CommitMessage, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return CommitMessage{}, ErrEmptyMessage
	}

	if strings.Contains(text, "```") {
		text = strings.TrimSpace(extractFromCodeBlock(text))
	}

	if obj, ok := findJSONObject(text); ok {
		return parseJSON(obj)
	}
	if strings.HasPrefix(text, "{") || jsonTitleKeyRe.MatchString(text) {
		return CommitMessage{}, fmt.Errorf("%w: incomplete JSON object", ErrUnparseable)
	}

	return parsePlain(text)
}

func parseJSON(obj string) (CommitMessage, error) {
	var r reply
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return CommitMessage{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	title := r.Title
	if title == "" {
		title = r.Subject
	}
	title = cleanTitle(title)
	if title == "" {
		return CommitMessage{}, ErrEmptyMessage
	}

	body, err := decodeBody(r.Description)
	if err != nil {
		return CommitMessage{}, err
	}
	if body == "" {
		if body, err = decodeBody(r.Body); err != nil {
			return CommitMessage{}, err
		}
	}

	return CommitMessage{Title: title, Body: body}, nil
}

// decodeBody accepts a string or a list of strings (rendered as bullets).
func decodeBody(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return "", fmt.Errorf("%w: description must be a string or list of strings", ErrUnparseable)
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.HasPrefix(item, "- ") && !strings.HasPrefix(item, "* ") {
			item = "- " + item
		}
		lines = append(lines, item)
	}
	return strings.Join(lines, "\n"), nil
}

func parsePlain(text string) (CommitMessage, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return CommitMessage{}, ErrEmptyMessage
	}

	title := cleanTitle(titleLabelRe.ReplaceAllString(strings.TrimSpace(lines[i]), ""))
	if title == "" {
		return CommitMessage{}, ErrEmptyMessage
	}

	rest := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
	rest = bodyLabelRe.ReplaceAllString(rest, "")

	return CommitMessage{Title: title, Body: strings.TrimSpace(rest)}, nil
}

// cleanTitle collapses whitespace and strips markdown decoration.
func cleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimLeft(s, "# ")
	s = strings.Trim(s, "*\"'`")
	return strings.TrimSpace(s)
}

// extractFromCodeBlock returns the contents of the first fenced block.
func extractFromCodeBlock(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}

	rest := text[start+3:]
	// Drop the info string ("json", "text", ...).
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return strings.TrimSuffix(rest, "```")
	}
	rest = rest[nl+1:]

	if end := strings.Index(rest, "```"); end >= 0 {
		return rest[:end]
	}
	return rest
}

// findJSONObject returns the first object in text that decodes and has a
// title or subject key, wherever it starts. An object without one is only
// returned when it starts the text.
func findJSONObject(text string) (string, bool) {
	for i := strings.IndexByte(text, '{'); i >= 0; {
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var fields map[string]json.RawMessage
		if err := dec.Decode(&fields); err == nil {
			obj := text[i : i+int(dec.InputOffset())]
			if i == 0 || hasTitleKey(fields) {
				return obj, true
			}
		}

		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return "", false
}

func hasTitleKey(fields map[string]json.RawMessage) bool {
	for k := range fields {
		if strings.EqualFold(k, "title") || strings.EqualFold(k, "subject") {
			return true
		}
	}
	return false
}

// IsConventional reports whether title follows "type(scope)!: description".
func IsConventional(title string) bool {
	return conventionalRe.MatchString(title)
}

// EnsureConventional returns m with a conventional title. A type written in
// the wrong case or spacing ("Feat : x") is normalized; a title with no type
// is prefixed with DefaultType.
func EnsureConventional(m CommitMessage) CommitMessage {
	if IsConventional(m.Title) {
		return m
	}

	if sub := looseTypeRe.FindStringSubmatch(m.Title); sub != nil {
		m.Title = strings.ToLower(sub[1]) + sub[2] + sub[3] + ": " + strings.TrimSpace(sub[4])
		return m
	}

	m.Title = DefaultType + ": " + lowerFirst(m.Title)
	return m
}

// lowerFirst lowercases a leading capital unless the first word is an acronym.
func lowerFirst(s string) string {
	if len(s) < 2 {
		return strings.ToLower(s)
	}
	if s[0] >= 'A' && s[0] <= 'Z' && !(s[1] >= 'A' && s[1] <= 'Z') {
		return string(s[0]+('a'-'A')) + s[1:]
	}
	return s
}

// FromEdited reads a message written by a person in an editor. Lines starting
// with '#' are comments. The first remaining line is the title and everything
// after it is the body.
func FromEdited(text string) (CommitMessage, error) {
	var kept []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}

	text = strings.TrimSpace(strings.Join(kept, "\n"))
	if text == "" {
		return CommitMessage{}, ErrEmptyMessage
	}

	title, body, _ := strings.Cut(text, "\n")
	return CommitMessage{Title: strings.TrimSpace(title), Body: strings.TrimSpace(body)}, nil
}
