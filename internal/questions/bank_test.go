package questions

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromReader_PadsAndTrims(t *testing.T) {
	t.Parallel()

	b, err := LoadFromReader(strings.NewReader("  first  \n\n second\n\t\nthird\n"), 5)
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	want := []string{"first", "second", "third", "Question #4", "Question #5"}
	if b.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", b.Len(), len(want))
	}
	for i, w := range want {
		got, err := b.Text(i + 1)
		if err != nil {
			t.Fatalf("Text(%d): %v", i+1, err)
		}
		if got != w {
			t.Errorf("Text(%d) = %q, want %q", i+1, got, w)
		}
	}
}

func TestLoadFromReader_Truncates(t *testing.T) {
	t.Parallel()

	b, err := LoadFromReader(strings.NewReader("a\nb\nc\nd\n"), 2)
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
	if _, err := b.Text(3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Text(3) err = %v, want ErrOutOfRange", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := filepath.Join(dir, "questions.txt")
	if err := os.WriteFile(path, []byte("What is your favourite memory?\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := Load(path, 127)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, _ := b.Text(1); got != "What is your favourite memory?" {
		t.Errorf("Text(1) = %q", got)
	}
	if got, _ := b.Text(127); got != "Question #127" {
		t.Errorf("Text(127) = %q", got)
	}

	missing, err := Load(filepath.Join(dir, "nope.txt"), 3)
	if err != nil {
		t.Fatalf("Load missing: %v", err)
	}
	if got, _ := missing.Text(2); got != "Question #2" {
		t.Errorf("missing file Text(2) = %q", got)
	}
}

func TestNew_RejectsEmptyBank(t *testing.T) {
	t.Parallel()
	if _, err := New(nil, 0); err == nil {
		t.Error("New with total 0 succeeded")
	}
}

func TestBank_Page(t *testing.T) {
	t.Parallel()

	b, err := New(nil, 127)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		index     int
		perPage   int
		wantIndex int
		wantFirst int
		wantLen   int
		prev      bool
		next      bool
	}{
		{"first", 0, 20, 0, 1, 20, false, true},
		{"middle", 3, 20, 3, 61, 20, true, true},
		{"last partial", 6, 20, 6, 121, 7, true, false},
		{"past end clamps", 99, 20, 6, 121, 7, true, false},
		{"negative clamps", -4, 20, 0, 1, 20, false, true},
		{"single page", 0, 0, 0, 1, 127, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := b.Page(tc.index, tc.perPage)
			if p.Index != tc.wantIndex {
				t.Errorf("Index = %d, want %d", p.Index, tc.wantIndex)
			}
			if len(p.Items) != tc.wantLen {
				t.Fatalf("len(Items) = %d, want %d", len(p.Items), tc.wantLen)
			}
			if p.Items[0].Number != tc.wantFirst {
				t.Errorf("first number = %d, want %d", p.Items[0].Number, tc.wantFirst)
			}
			if p.HasPrev() != tc.prev || p.HasNext() != tc.next {
				t.Errorf("HasPrev/HasNext = %v/%v, want %v/%v", p.HasPrev(), p.HasNext(), tc.prev, tc.next)
			}
		})
	}
}
