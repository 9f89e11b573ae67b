package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAuthorRoundTrip_Plain(t *testing.T) {
	a := PlainAuthor("alice")
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"alice"` {
		t.Errorf("marshal = %s, want bare string", data)
	}

	var back Author
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Name != "alice" || back.Email != "" {
		t.Errorf("round trip = %+v", back)
	}
	if back.Display() != "alice" {
		t.Errorf("Display = %q", back.Display())
	}
}

func TestAuthorRoundTrip_Structured(t *testing.T) {
	a := StructuredAuthor("Alice", "alice@example.com")
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Author
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Name != "Alice" || back.Email != "alice@example.com" {
		t.Errorf("round trip = %+v", back)
	}
	if got := back.Display(); got != "Alice <alice@example.com>" {
		t.Errorf("Display = %q", got)
	}

	// Structured stays structured on re-marshal.
	again, _ := json.Marshal(back)
	if string(again) != `{"name":"Alice","email":"alice@example.com"}` {
		t.Errorf("re-marshal = %s", again)
	}
}

func TestAuthorUnmarshal_Invalid(t *testing.T) {
	var a Author
	if err := json.Unmarshal([]byte(`42`), &a); err == nil {
		t.Error("expected error for numeric author")
	}
}

func TestLocationClamp(t *testing.T) {
	cases := []struct {
		in, want Location
	}{
		{Location{StartLine: 0, EndLine: 5}, Location{StartLine: 1, EndLine: 5}},
		{Location{StartLine: -3, EndLine: -1}, Location{StartLine: 1, EndLine: 1}},
		{Location{StartLine: 10, EndLine: 4}, Location{StartLine: 10, EndLine: 10}},
		{Location{StartLine: 2, EndLine: 2}, Location{StartLine: 2, EndLine: 2}},
	}
	for _, c := range cases {
		got := c.in
		got.Clamp()
		if got.StartLine != c.want.StartLine || got.EndLine != c.want.EndLine {
			t.Errorf("Clamp(%+v) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestRecomputeIndex(t *testing.T) {
	doc := NewDocument("ws")
	doc.Items = []*Record{
		{ID: "a", State: StateActive, File: "x.go", Tags: []string{"perf", "todo"}},
		{ID: "b", State: StateActive, File: "x.go", Tags: []string{"perf"}},
		{ID: "c", State: StateArchived, File: "y.go", Tags: []string{"perf"}},
	}
	doc.RecomputeIndex()

	if doc.Index.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1 (archived files excluded)", doc.Index.FileCount)
	}
	if doc.Index.TagCounts["perf"] != 2 {
		t.Errorf("TagCounts[perf] = %d, want 2", doc.Index.TagCounts["perf"])
	}
	if doc.Index.StateCounts["archived"] != 1 {
		t.Errorf("StateCounts[archived] = %d", doc.Index.StateCounts["archived"])
	}
}

func TestNewDocumentIsSchemaValid(t *testing.T) {
	doc := NewDocument("demo")
	if doc.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d", doc.SchemaVersion)
	}
	if doc.Items == nil {
		t.Error("Items should be non-nil")
	}
	if doc.Metadata.CreatedAt.IsZero() || !doc.Metadata.CreatedAt.Equal(doc.Metadata.LastUpdatedAt) {
		t.Error("metadata timestamps not stamped")
	}
	if time.Since(doc.Metadata.CreatedAt) > time.Minute {
		t.Error("CreatedAt not recent")
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath("./src/main.go"); got != "src/main.go" {
		t.Errorf("NormalizePath = %q", got)
	}
}
