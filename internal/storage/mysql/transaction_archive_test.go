package mysql

import (
	"context"
	"testing"
	"time"

	"AgentCoin-Sim/internal/ledger"
)

func sampleTransaction(id string, amount float64) *ledger.Transaction {
	return &ledger.Transaction{
		ID:          id,
		Timestamp:   time.Now().UTC(),
		Description: "Payment for Price Oracle",
		Amount:      amount,
		Quality:     ledger.QualityNeutral,
	}
}

func TestMemoryArchiveRecordAndList(t *testing.T) {
	archive, err := NewMemoryArchive(t.TempDir())
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}

	if err := archive.Record(context.Background(), sampleTransaction("tx-1", -5)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := archive.Record(context.Background(), sampleTransaction("tx-2", 85)); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, err := archive.ListLatest(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "tx-2" {
		t.Fatalf("expected the latest record first, got %s", records[0].ID)
	}
}

func TestMemoryArchiveListLimit(t *testing.T) {
	archive, err := NewMemoryArchive(t.TempDir())
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := archive.Record(context.Background(), sampleTransaction("tx", -1)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	records, err := archive.ListLatest(context.Background(), 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}

func TestMemoryArchiveRestoresFromDisk(t *testing.T) {
	dir := t.TempDir()

	first, err := NewMemoryArchive(dir)
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	if err := first.Record(context.Background(), sampleTransaction("tx-persist", -20)); err != nil {
		t.Fatalf("record: %v", err)
	}

	second, err := NewMemoryArchive(dir)
	if err != nil {
		t.Fatalf("reopen archive: %v", err)
	}
	records, err := second.ListLatest(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].ID != "tx-persist" {
		t.Fatalf("expected the persisted record, got %+v", records)
	}
}
