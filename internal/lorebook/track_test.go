package lorebook

import (
	"testing"

	"github.com/starford/laguz/internal/models"
)

// seed creates an active record spanning [start, end] on file.
func seed(t *testing.T, b *Book, file string, start, end int) string {
	t.Helper()
	id, _, err := b.Upsert(Payload{StartLine: &start, EndLine: &end}, Fallback{File: file})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func loc(t *testing.T, b *Book, id string) models.Location {
	t.Helper()
	r := b.ByID(id)
	if r == nil {
		t.Fatalf("record %s missing", id)
	}
	return r.Location
}

func TestTrack_InsertionBeforeSingleLine(t *testing.T) {
	b := New("ws")
	id := seed(t, b, "a.go", 10, 10)

	// 3 net lines inserted starting at line 2 (0-based edit line 1).
	changed := b.Track("a.go", []Edit{{RangeStart: 1, RangeEnd: 1, InsertedLineCount: 3}})
	if !changed {
		t.Fatal("changed = false")
	}
	if l := loc(t, b, id); l.StartLine != 13 || l.EndLine != 13 {
		t.Errorf("location = %+v, want 13-13", l)
	}
}

func TestTrack_EditAfterMultiLine(t *testing.T) {
	b := New("ws")
	id := seed(t, b, "a.go", 5, 8)

	changed := b.Track("a.go", []Edit{{RangeStart: 19, RangeEnd: 19, InsertedLineCount: 5}})
	if changed {
		t.Error("changed = true for edit after record")
	}
	if l := loc(t, b, id); l.StartLine != 5 || l.EndLine != 8 {
		t.Errorf("location = %+v, want unchanged 5-8", l)
	}
}

func TestTrack_EditInsideMultiLine(t *testing.T) {
	b := New("ws")
	id := seed(t, b, "a.go", 5, 10)

	// Line 7 (0-based 6) replaced by 4 lines: delta +3.
	changed := b.Track("a.go", []Edit{{RangeStart: 6, RangeEnd: 6, InsertedLineCount: 4}})
	if !changed {
		t.Fatal("changed = false")
	}
	if l := loc(t, b, id); l.StartLine != 5 || l.EndLine != 13 {
		t.Errorf("location = %+v, want 5-13", l)
	}
}

func TestTrack_EditBeforeMultiLineMovesWhole(t *testing.T) {
	b := New("ws")
	id := seed(t, b, "a.go", 5, 8)

	changed := b.Track("a.go", []Edit{{RangeStart: 0, RangeEnd: 2, InsertedLineCount: 0}})
	if !changed {
		t.Fatal("changed = false")
	}
	if l := loc(t, b, id); l.StartLine != 3 || l.EndLine != 6 {
		t.Errorf("location = %+v, want 3-6", l)
	}
}

func TestTrack_ZeroDeltaSkipped(t *testing.T) {
	b := New("ws")
	id := seed(t, b, "a.go", 5, 8)

	changed := b.Track("a.go", []Edit{{RangeStart: 5, RangeEnd: 6, InsertedLineCount: 1}})
	if changed {
		t.Error("pure in-place edit must not relocate")
	}
	if l := loc(t, b, id); l.StartLine != 5 || l.EndLine != 8 {
		t.Errorf("location = %+v", l)
	}
}

func TestTrack_SingleLineUnaffectedByLaterEdit(t *testing.T) {
	b := New("ws")
	id := seed(t, b, "a.go", 4, 4)

	b.Track("a.go", []Edit{{RangeStart: 4, RangeEnd: 4, InsertedLineCount: 3}})
	if l := loc(t, b, id); l.StartLine != 4 || l.EndLine != 4 {
		t.Errorf("location = %+v, want unchanged", l)
	}
}

func TestTrack_ShrinkClampsEndToStart(t *testing.T) {
	b := New("ws")
	id := seed(t, b, "a.go", 5, 7)

	// Lines 5-9 (0-based 4-8) collapse to one line: delta -4 lands end
	// below start, which must clamp.
	b.Track("a.go", []Edit{{RangeStart: 4, RangeEnd: 8, InsertedLineCount: 0}})
	l := loc(t, b, id)
	if l.StartLine != 5 || l.EndLine != 5 {
		t.Errorf("location = %+v, want 5-5", l)
	}
}

func TestTrack_NeverBelowLineOne(t *testing.T) {
	b := New("ws")
	id := seed(t, b, "a.go", 2, 2)

	// Remove 5 lines above the record: raw shift would go negative.
	b.Track("a.go", []Edit{{RangeStart: 0, RangeEnd: 5, InsertedLineCount: 0}})
	l := loc(t, b, id)
	if l.StartLine < 1 || l.EndLine < l.StartLine {
		t.Errorf("invariant violated: %+v", l)
	}
}

func TestTrack_OnlyNamedFile(t *testing.T) {
	b := New("ws")
	idA := seed(t, b, "a.go", 10, 10)
	idB := seed(t, b, "b.go", 10, 10)

	b.Track("a.go", []Edit{{RangeStart: 0, RangeEnd: 0, InsertedLineCount: 2}})
	if l := loc(t, b, idA); l.StartLine != 12 {
		t.Errorf("a.go record = %+v", l)
	}
	if l := loc(t, b, idB); l.StartLine != 10 {
		t.Errorf("b.go record must not move: %+v", l)
	}
}

func TestTrack_InactiveRecordsNeverMove(t *testing.T) {
	b := New("ws")
	id := seed(t, b, "a.go", 10, 12)
	if err := b.SetState(id, models.StateArchived); err != nil {
		t.Fatal(err)
	}

	changed := b.Track("a.go", []Edit{{RangeStart: 0, RangeEnd: 0, InsertedLineCount: 5}})
	if changed {
		t.Error("archived record must not be tracked")
	}
	if l := loc(t, b, id); l.StartLine != 10 || l.EndLine != 12 {
		t.Errorf("location = %+v", l)
	}
}

func TestTrack_EditsAppliedInOrder(t *testing.T) {
	b := New("ws")
	id := seed(t, b, "a.go", 10, 10)

	b.Track("a.go", []Edit{
		{RangeStart: 0, RangeEnd: 0, InsertedLineCount: 3}, // → 13
		{RangeStart: 1, RangeEnd: 3, InsertedLineCount: 1}, // delta -2 → 11
	})
	if l := loc(t, b, id); l.StartLine != 11 || l.EndLine != 11 {
		t.Errorf("location = %+v, want 11-11", l)
	}
}

func TestTrack_ClampInvariantUnderRandomishEdits(t *testing.T) {
	b := New("ws")
	ids := []string{
		seed(t, b, "a.go", 1, 1),
		seed(t, b, "a.go", 3, 9),
		seed(t, b, "a.go", 15, 15),
		seed(t, b, "a.go", 20, 40),
	}
	edits := []Edit{
		{RangeStart: 0, RangeEnd: 10, InsertedLineCount: 2},
		{RangeStart: 2, RangeEnd: 2, InsertedLineCount: 7},
		{RangeStart: 5, RangeEnd: 30, InsertedLineCount: 0},
		{RangeStart: 0, RangeEnd: 0, InsertedLineCount: 1},
		{RangeStart: 1, RangeEnd: 50, InsertedLineCount: 3},
	}
	for i, e := range edits {
		b.Track("a.go", []Edit{e})
		for _, id := range ids {
			l := loc(t, b, id)
			if l.StartLine < 1 || l.EndLine < l.StartLine {
				t.Fatalf("after edit %d: invariant violated for %s: %+v", i, id, l)
			}
		}
	}
}

func TestTrack_NotifiesOncePerChangedBatch(t *testing.T) {
	b := New("ws")
	seed(t, b, "a.go", 10, 10)

	var events []Event
	b.Subscribe(func(ev Event) { events = append(events, ev) })

	b.Track("a.go", []Edit{{RangeStart: 0, RangeEnd: 0, InsertedLineCount: 1}})
	b.Track("a.go", []Edit{{RangeStart: 50, RangeEnd: 50, InsertedLineCount: 1}}) // no-op

	if len(events) != 1 || events[0].Kind != EventRelocated || events[0].File != "a.go" {
		t.Errorf("events = %+v", events)
	}
}
