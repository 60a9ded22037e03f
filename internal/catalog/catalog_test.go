package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	cat := Default()

	if cat.Len() != 7 {
		t.Fatalf("expected 7 services, got %d", cat.Len())
	}
	if !cat.IsLoan("6") {
		t.Fatalf("expected service 6 to be the loan service")
	}
	if !cat.IsRepay("7") {
		t.Fatalf("expected service 7 to be the repay service")
	}

	svc, ok := cat.Lookup("2")
	if !ok {
		t.Fatalf("service 2 not found")
	}
	if svc.ProducesAsset == nil || svc.ProducesAsset.AssetID != "pdp" {
		t.Fatalf("expected service 2 to produce pdp, got %+v", svc.ProducesAsset)
	}

	sell, ok := cat.Lookup("5")
	if !ok {
		t.Fatalf("service 5 not found")
	}
	if sell.RequiresAssetID != "pdp" || sell.Cost != -85 {
		t.Fatalf("unexpected sell service: %+v", sell)
	}
}

func TestLookupUnknownService(t *testing.T) {
	cat := Default()
	if _, ok := cat.Lookup("999"); ok {
		t.Fatalf("expected lookup miss for unknown id")
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	services := []Service{
		{ID: "1", Name: "A"},
		{ID: "1", Name: "B"},
		{ID: "6", Name: "Loan", Cost: -150},
		{ID: "7", Name: "Repay", Cost: 175},
	}
	if _, err := New(services, "", ""); err == nil {
		t.Fatalf("expected error for duplicate service ids")
	}
}

func TestNewRejectsMissingLoanService(t *testing.T) {
	services := []Service{{ID: "1", Name: "A"}}
	if _, err := New(services, "6", "1"); err == nil {
		t.Fatalf("expected error when loan service is absent")
	}
}

func TestServicesPreservesOrder(t *testing.T) {
	cat := Default()
	services := cat.Services()
	for i, svc := range services {
		if want := defaultServices()[i].ID; svc.ID != want {
			t.Fatalf("service %d: expected id %s, got %s", i, want, svc.ID)
		}
	}
}

func TestLoadFile(t *testing.T) {
	content := `
loan_service_id: "L1"
repay_service_id: "R1"
services:
  - id: "L1"
    name: Micro Loan
    cost: -50
  - id: "R1"
    name: Repay Micro Loan
    cost: 60
  - id: "feed"
    name: Data Feed
    cost: 10
    produces_asset:
      asset_id: packet
      name: Data Packet
`
	path := filepath.Join(t.TempDir(), "services.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog file: %v", err)
	}

	cat, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if cat.Len() != 3 {
		t.Fatalf("expected 3 services, got %d", cat.Len())
	}
	if !cat.IsLoan("L1") || !cat.IsRepay("R1") {
		t.Fatalf("loan/repay ids were not honored")
	}
	feed, ok := cat.Lookup("feed")
	if !ok {
		t.Fatalf("feed service not found")
	}
	if feed.ProducesAsset == nil || feed.ProducesAsset.AssetID != "packet" {
		t.Fatalf("unexpected produced asset: %+v", feed.ProducesAsset)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
