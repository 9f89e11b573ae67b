//go:build sqlite_fts5

package index

import (
	"strings"
	"testing"
	"time"
)

func TestFTSSearch(t *testing.T) {
	db := testDB(t)

	rows := []struct {
		id, summary, body string
		tags              []string
	}{
		{"r1", "connection pooling", "the database pool saturates under sustained load", []string{"perf", "db"}},
		{"r2", "retry loop", "exponential backoff with jitter", []string{"resilience"}},
		{"r3", "naming", "nothing interesting", nil},
	}
	for _, r := range rows {
		err := db.UpsertRecord(RecordRow{
			ID: r.id, File: "x.go", Summary: r.summary, State: "active",
			Tags: r.tags, StartLine: 1, EndLine: 1, UpdatedAt: time.Now(),
		}, r.body)
		if err != nil {
			t.Fatalf("UpsertRecord: %v", err)
		}
	}

	hits, err := db.Search("pool", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "r1" {
		t.Fatalf("hits = %+v", hits)
	}
	if !strings.Contains(hits[0].Snippet, "<b>") {
		t.Errorf("snippet lacks highlight: %q", hits[0].Snippet)
	}
}

func TestFTSSearch_TagsIndexed(t *testing.T) {
	db := testDB(t)
	err := db.UpsertRecord(RecordRow{
		ID: "r1", File: "x.go", Summary: "s", State: "active",
		Tags: []string{"latency"}, StartLine: 1, EndLine: 1, UpdatedAt: time.Now(),
	}, "body")
	if err != nil {
		t.Fatal(err)
	}

	hits, err := db.Search("latency", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestFTSUpsertReplaces(t *testing.T) {
	db := testDB(t)
	mk := func(body string) error {
		return db.UpsertRecord(RecordRow{
			ID: "r1", File: "x.go", Summary: "s", State: "active",
			StartLine: 1, EndLine: 1, UpdatedAt: time.Now(),
		}, body)
	}
	if err := mk("first version mentions walrus"); err != nil {
		t.Fatal(err)
	}
	if err := mk("second version mentions heron"); err != nil {
		t.Fatal(err)
	}

	if hits, _ := db.Search("walrus", 10); len(hits) != 0 {
		t.Errorf("stale fts content still matches: %+v", hits)
	}
	if hits, _ := db.Search("heron", 10); len(hits) != 1 {
		t.Errorf("new fts content missing: %+v", hits)
	}
}
