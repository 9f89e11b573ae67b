package lorebook

import "github.com/starford/laguz/internal/models"

// Edit is one line-span replacement reported by the host editor: document
// lines [RangeStart, RangeEnd] (0-based, inclusive) were replaced by text
// containing InsertedLineCount newlines. Edits must be reported as
// non-overlapping effective ranges, in the order they occurred.
type Edit struct {
	RangeStart        int
	RangeEnd          int
	InsertedLineCount int
}

// delta is the net line-count change the edit causes.
func (e Edit) delta() int {
	return e.InsertedLineCount - (e.RangeEnd - e.RangeStart)
}

// Track shifts the locations of the file's active records to follow the
// given edits, applied in order. It reports whether any location actually
// changed; callers use that to refresh decorations and schedule a persist.
//
// This is a coarse line-delta tracker, not a diff: a record whose source
// lines are deleted wholesale collapses to a 1-line span at the edit site
// rather than being archived. That approximation is intentional.
func (b *Book) Track(file string, edits []Edit) bool {
	file = models.NormalizePath(file)
	changed := false

	for _, e := range edits {
		d := e.delta()
		if d == 0 {
			// In-place edit with no line-count change never relocates.
			continue
		}
		for _, r := range b.doc.Items {
			if !r.Active() || r.File != file {
				continue
			}
			if shift(&r.Location, e.RangeStart, d) {
				changed = true
			}
		}
	}

	if changed {
		b.notify(Event{Kind: EventRelocated, File: file})
	}
	return changed
}

// shift applies one edit's delta to a location. Work happens in 0-based
// coordinates; the result is clamped so startLine >= 1 and
// endLine >= startLine always hold.
func shift(loc *models.Location, editStart, delta int) bool {
	start := loc.StartLine - 1
	end := loc.EndLine - 1

	switch {
	case start == end:
		// Single-line record moves when the edit is at or before it.
		if editStart <= start {
			start += delta
			end += delta
		}
	case editStart < start:
		// Edit entirely precedes the record: the whole record moves.
		start += delta
		end += delta
	case editStart <= end:
		// Edit inside or at the trailing boundary: the extent changes,
		// anchored at the start. Never invert.
		end += delta
		if end < start {
			end = start
		}
	}

	newStart := max(1, start+1)
	newEnd := max(1, end+1)
	if newEnd < newStart {
		newEnd = newStart
	}

	if newStart == loc.StartLine && newEnd == loc.EndLine {
		return false
	}
	loc.StartLine = newStart
	loc.EndLine = newEnd
	return true
}
