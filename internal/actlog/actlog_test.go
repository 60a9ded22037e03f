package actlog

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type failingSink struct{}

func (failingSink) Emit(context.Context, Entry) error { return errors.New("broker down") }
func (failingSink) Close() error                      { return nil }

func TestAppendPreservesOrder(t *testing.T) {
	log := New()

	log.Append(context.Background(), TypeSystem, "Agent started.")
	log.Append(context.Background(), TypeInfo, "Agent is thinking...")
	log.Append(context.Background(), TypeInfo, "Agent chose to wait.")

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "Agent started." || entries[2].Message != "Agent chose to wait." {
		t.Fatalf("append order was not preserved: %+v", entries)
	}
	for _, entry := range entries {
		if entry.ID == "" || entry.Timestamp.IsZero() {
			t.Fatalf("entry missing id or timestamp: %+v", entry)
		}
	}
}

func TestEntriesIsDetached(t *testing.T) {
	log := New()
	log.Append(context.Background(), TypeError, "Agent cycle failed: boom")

	entries := log.Entries()
	entries[0].Message = "mutated"
	if log.Entries()[0].Message != "Agent cycle failed: boom" {
		t.Fatalf("entries mutation leaked into the log")
	}
}

func TestMemorySinkReceivesEntries(t *testing.T) {
	sink := NewMemorySink(8)
	log := New(WithSink(sink))

	appended := log.Append(context.Background(), TypeWallet, "Transaction: test | Amount: -5.00 AGENT-COIN | New Balance: 95.00")

	select {
	case got := <-sink.Feed():
		if got.ID != appended.ID {
			t.Fatalf("sink saw entry %s, expected %s", got.ID, appended.ID)
		}
	default:
		t.Fatalf("sink did not receive the entry")
	}
}

func TestMemorySinkDropsOldestWhenFull(t *testing.T) {
	sink := NewMemorySink(1)
	log := New(WithSink(sink))

	log.Append(context.Background(), TypeInfo, "first")
	log.Append(context.Background(), TypeInfo, "second")

	got := <-sink.Feed()
	if got.Message != "second" {
		t.Fatalf("expected the oldest entry to be dropped, got %q", got.Message)
	}
}

func TestSinkFailureDoesNotAffectLog(t *testing.T) {
	log := New(WithSink(failingSink{}))

	for i := 0; i < 3; i++ {
		log.Append(context.Background(), TypeInfo, fmt.Sprintf("entry %d", i))
	}
	if log.Len() != 3 {
		t.Fatalf("entries must be appended even when the sink fails, got %d", log.Len())
	}
}
