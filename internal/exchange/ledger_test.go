package exchange

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestLedger_MarkReceived(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	if !l.MarkReceived("x", 5) {
		t.Error("first mark reported no change")
	}
	if l.MarkReceived("x", 5) {
		t.Error("second mark reported a change")
	}
	l.MarkReceived("x", 2)

	if got := l.Received("x"); !slices.Equal(got, []int{2, 5}) {
		t.Errorf("Received(x) = %v, want [2 5]", got)
	}
	if l.Count("x") != 2 || l.Count("y") != 0 {
		t.Errorf("counts = %d/%d, want 2/0", l.Count("x"), l.Count("y"))
	}
	if l.Has("y", 5) {
		t.Error("entries leaked across participants")
	}
}

func TestLedger_ZeroValue(t *testing.T) {
	t.Parallel()

	var l Ledger
	if l.Has("x", 1) {
		t.Error("zero ledger has entries")
	}
	l.MarkReceived("x", 1)
	if !l.Has("x", 1) {
		t.Error("zero ledger did not record")
	}
}

func TestLedger_FullyClosed(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.MarkReceived("x", 2)
	roles := Roles{A: "x", B: "y"}

	if l.IsFullyClosed(2, roles) {
		t.Fatal("q2 closed with only one side")
	}
	l.MarkReceived("y", 2)
	l.MarkReceived("y", 3)
	if !l.IsFullyClosed(2, roles) {
		t.Error("q2 not closed with both sides")
	}
	if got := l.FullyClosed(5, roles); !slices.Equal(got, []int{2}) {
		t.Errorf("FullyClosed = %v, want [2]", got)
	}
	if l.IsFullyClosed(2, Roles{A: "x"}) {
		t.Error("closure requires both slots assigned")
	}
	if l.IsFullyClosed(2, Roles{A: "x", B: "z"}) {
		t.Error("closure must follow the current occupants")
	}
}

func TestLedger_CloneIsDeep(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.MarkReceived("x", 1)
	c := l.Clone()
	c.MarkReceived("x", 2)
	c.MarkReceived("y", 3)

	if l.Has("x", 2) || l.Has("y", 3) {
		t.Error("mutating clone changed original")
	}
}

func TestLedger_Reset(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.MarkReceived("x", 1)
	l.MarkReceived("y", 1)
	l.Reset()
	if l.Count("x") != 0 || len(l.Participants()) != 0 {
		t.Error("Reset left entries behind")
	}
}

func TestLedger_JSON(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.MarkReceived("x", 9)
	l.MarkReceived("x", 2)

	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"x":[2,9]}` {
		t.Errorf("Marshal = %s, want {\"x\":[2,9]}", data)
	}

	var back Ledger
	if err := json.Unmarshal([]byte(`{"y":[4,4,1]}`), &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := back.Received("y"); !slices.Equal(got, []int{1, 4}) {
		t.Errorf("Received(y) = %v, want [1 4]", got)
	}
}
