package ledger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestExportCSVNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	transactions := []Transaction{
		{ID: "a", Timestamp: base, Description: "old", Amount: -5, Quality: QualityNeutral},
		{ID: "b", Timestamp: base.Add(time.Minute), Description: "new", Amount: 85, Quality: QualityGood},
	}

	content, err := ExportCSV(transactions)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 records, got %d lines", len(lines))
	}
	if lines[0] != "ID,Timestamp,Description,Amount,Quality" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "b,") {
		t.Fatalf("expected newest transaction first, got %q", lines[1])
	}
	if !strings.Contains(lines[1], "85.00") {
		t.Fatalf("amount should use two decimals, got %q", lines[1])
	}
}

func TestExportCSVQuotesCommas(t *testing.T) {
	transactions := []Transaction{
		{
			ID:          "a",
			Timestamp:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Description: "Transaction: loan | Amount, in coins",
			Amount:      -150,
			Quality:     QualityNeutral,
		},
	}

	content, err := ExportCSV(transactions)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(content), `"Transaction: loan | Amount, in coins"`) {
		t.Fatalf("description with comma should be quoted:\n%s", content)
	}
}

func TestExportParseRoundTrip(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 123e6, time.UTC)
	original := []Transaction{
		{ID: "tx-1", Timestamp: base.Add(time.Second), Description: "Payment for Price Oracle", Amount: -5, Quality: QualityNeutral},
		{ID: "tx-2", Timestamp: base, Description: "Payment for Take Loan (150)", Amount: 150, Quality: QualityGood},
	}

	content, err := ExportCSV(original)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	parsed, err := ParseCSV(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(parsed))
	}
	// 导出按最新在前排序。
	if parsed[0].ID != "tx-1" || parsed[1].ID != "tx-2" {
		t.Fatalf("unexpected order: %s, %s", parsed[0].ID, parsed[1].ID)
	}
	if !parsed[1].Timestamp.Equal(base) {
		t.Fatalf("timestamp should survive to the millisecond: %v != %v", parsed[1].Timestamp, base)
	}
	if parsed[1].Amount != 150 || parsed[1].Quality != QualityGood {
		t.Fatalf("unexpected record: %+v", parsed[1])
	}
}

func TestParseCSVRejectsBadHeader(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("foo,bar\n")); err == nil {
		t.Fatalf("expected error for wrong header")
	}
}
