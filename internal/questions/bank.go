// Package questions provides the fixed, numbered question bank. Questions are
// addressed by 1-indexed number; the bank always holds exactly the configured
// total, padding missing entries with placeholders.
package questions

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// ErrOutOfRange is returned by [Bank.Text] for numbers outside [1, Len].
var ErrOutOfRange = errors.New("questions: number out of range")

// Bank is an immutable list of question texts.
type Bank struct {
	texts []string
}

// Placeholder returns the text used for question n when the source has no
// entry for it.
func Placeholder(n int) string {
	return fmt.Sprintf("Question #%d", n)
}

// Load reads one question per non-empty line from path. A missing file yields
// a bank of placeholders.
func Load(path string, total int) (*Bank, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("questions: bank file not found, using placeholders", "path", path, "total", total)
		return New(nil, total)
	}
	if err != nil {
		return nil, fmt.Errorf("questions: open %q: %w", path, err)
	}
	defer f.Close()

	b, err := LoadFromReader(f, total)
	if err != nil {
		return nil, fmt.Errorf("questions: read %q: %w", path, err)
	}
	return b, nil
}

// LoadFromReader reads one question per non-empty line from r. Surrounding
// whitespace is trimmed.
func LoadFromReader(r io.Reader, total int) (*Bank, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return New(lines, total)
}

// New builds a bank of exactly total questions from texts, truncating extra
// entries and padding missing ones with [Placeholder].
func New(texts []string, total int) (*Bank, error) {
	if total < 1 {
		return nil, fmt.Errorf("questions: total must be positive, got %d", total)
	}
	out := make([]string, total)
	for i := range out {
		if i < len(texts) {
			out[i] = texts[i]
		} else {
			out[i] = Placeholder(i + 1)
		}
	}
	if len(texts) > total {
		slog.Info("questions: bank truncated", "lines", len(texts), "total", total)
	}
	return &Bank{texts: out}, nil
}

// Len returns the number of questions N.
func (b *Bank) Len() int { return len(b.texts) }

// Text returns the text of question n.
func (b *Bank) Text(n int) (string, error) {
	if n < 1 || n > len(b.texts) {
		return "", fmt.Errorf("%w: %d not in 1..%d", ErrOutOfRange, n, len(b.texts))
	}
	return b.texts[n-1], nil
}

// Item is one numbered question on a [Page].
type Item struct {
	Number int
	Text   string
}

// Page is one slice of the bank for listing.
type Page struct {
	// Index is the zero-based page index after clamping.
	Index int

	// Count is the number of pages.
	Count int

	Items []Item
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Index > 0 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Index+1 < p.Count }

// Page returns page index of size perPage. Out-of-range indexes are clamped to
// the first or last page; a non-positive perPage lists everything on one page.
func (b *Bank) Page(index, perPage int) Page {
	n := len(b.texts)
	if perPage < 1 {
		perPage = n
	}
	count := (n + perPage - 1) / perPage
	index = max(0, min(index, count-1))

	start := index * perPage
	end := min(start+perPage, n)
	items := make([]Item, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, Item{Number: i + 1, Text: b.texts[i]})
	}
	return Page{Index: index, Count: count, Items: items}
}
