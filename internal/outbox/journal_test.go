package outbox

import (
	"path/filepath"
	"testing"
	"time"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "outbox.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndConfirm(t *testing.T) {
	j := testJournal(t)

	if err := j.Record("c1", "bob", "hi"); err != nil {
		t.Fatal(err)
	}

	entries, err := j.Unconfirmed()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Recipient != "bob" || entries[0].Status != "pending" {
		t.Fatalf("entries = %+v", entries)
	}

	if err := j.Confirm("c1", "42"); err != nil {
		t.Fatal(err)
	}
	entries, _ = j.Unconfirmed()
	if len(entries) != 0 {
		t.Errorf("confirmed entry still listed: %+v", entries)
	}
}

func TestFailedEntriesStayListed(t *testing.T) {
	j := testJournal(t)

	_ = j.Record("c1", "bob", "hi")
	if err := j.Fail("c1", "not connected"); err != nil {
		t.Fatal(err)
	}

	entries, _ := j.Unconfirmed()
	if len(entries) != 1 || entries[0].Status != "failed" || entries[0].ErrorMessage != "not connected" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestRecordIdempotentOnRetry(t *testing.T) {
	j := testJournal(t)

	_ = j.Record("c1", "bob", "hi")
	_ = j.Fail("c1", "not connected")
	// Retry re-records under the same correlation id.
	if err := j.Record("c1", "bob", "hi"); err != nil {
		t.Fatal(err)
	}

	entries, _ := j.Unconfirmed()
	if len(entries) != 1 || entries[0].Status != "pending" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestNilJournalIsNoop(t *testing.T) {
	var j *Journal
	if err := j.Record("c1", "bob", "hi"); err != nil {
		t.Error(err)
	}
	if err := j.Confirm("c1", "42"); err != nil {
		t.Error(err)
	}
	entries, err := j.Unconfirmed()
	if err != nil || entries != nil {
		t.Errorf("nil journal returned %v, %v", entries, err)
	}
}

func TestPruneConfirmed(t *testing.T) {
	j := testJournal(t)

	_ = j.Record("c1", "bob", "hi")
	_ = j.Confirm("c1", "42")

	if err := j.Prune(0); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM outbox`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestUnconfirmedOrderedOldestFirst(t *testing.T) {
	j := testJournal(t)

	_ = j.Record("c1", "bob", "one")
	time.Sleep(2 * time.Millisecond)
	_ = j.Record("c2", "bob", "two")

	entries, _ := j.Unconfirmed()
	if len(entries) != 2 || entries[0].Body != "one" {
		t.Errorf("entries = %+v", entries)
	}
}
