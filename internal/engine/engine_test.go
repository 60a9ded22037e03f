package engine

import (
	"context"
	"errors"
	"testing"

	"AgentCoin-Sim/internal/catalog"
	"AgentCoin-Sim/internal/inventory"
	"AgentCoin-Sim/internal/ledger"
)

func mustService(t *testing.T, cat *catalog.Catalog, id string) catalog.Service {
	t.Helper()
	svc, ok := cat.Lookup(id)
	if !ok {
		t.Fatalf("service %s not in catalog", id)
	}
	return svc
}

func TestTakeLoan(t *testing.T) {
	cat := catalog.Default()
	eng := New(cat)
	led := ledger.New(100)
	inv := inventory.NewStore()

	outcome, err := eng.Apply(context.Background(), mustService(t, cat, "6"), led, inv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if led.Balance() != 250 {
		t.Fatalf("expected balance 250 after loan, got %f", led.Balance())
	}
	if led.Debt() != 150 {
		t.Fatalf("expected debt 150, got %f", led.Debt())
	}
	if !outcome.DebtChanged || outcome.NewDebt != 150 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.Transaction.Amount != 150 || outcome.Transaction.Quality != ledger.QualityGood {
		t.Fatalf("unexpected transaction: %+v", outcome.Transaction)
	}
}

func TestSecondLoanRejected(t *testing.T) {
	cat := catalog.Default()
	eng := New(cat)
	led := ledger.New(100)
	inv := inventory.NewStore()

	if _, err := eng.Apply(context.Background(), mustService(t, cat, "6"), led, inv); err != nil {
		t.Fatalf("first loan failed: %v", err)
	}
	_, err := eng.Apply(context.Background(), mustService(t, cat, "6"), led, inv)
	if !errors.Is(err, ErrLoanOutstanding) {
		t.Fatalf("expected loan-outstanding error, got %v", err)
	}
	// 失败的前置条件不得产生任何副作用。
	if led.Balance() != 250 || led.Debt() != 150 {
		t.Fatalf("rejected loan must not change the ledger: balance=%f debt=%f", led.Balance(), led.Debt())
	}
	if len(led.Snapshot().Transactions) != 1 {
		t.Fatalf("rejected loan must not append a transaction")
	}
}

func TestRepayLoan(t *testing.T) {
	cat := catalog.Default()
	eng := New(cat)
	led := ledger.New(100)
	inv := inventory.NewStore()

	if _, err := eng.Apply(context.Background(), mustService(t, cat, "6"), led, inv); err != nil {
		t.Fatalf("loan failed: %v", err)
	}
	outcome, err := eng.Apply(context.Background(), mustService(t, cat, "7"), led, inv)
	if err != nil {
		t.Fatalf("repay failed: %v", err)
	}
	if led.Balance() != 75 {
		t.Fatalf("expected balance 75 after repay, got %f", led.Balance())
	}
	if led.Debt() != 0 {
		t.Fatalf("expected debt cleared, got %f", led.Debt())
	}
	if outcome.Transaction.Quality != ledger.QualityGood {
		t.Fatalf("repayment should be classified GOOD, got %s", outcome.Transaction.Quality)
	}
}

func TestRepayWithoutLoan(t *testing.T) {
	cat := catalog.Default()
	eng := New(cat)
	led := ledger.New(500)
	inv := inventory.NewStore()

	_, err := eng.Apply(context.Background(), mustService(t, cat, "7"), led, inv)
	if !errors.Is(err, ErrNoLoanToRepay) {
		t.Fatalf("expected no-loan error, got %v", err)
	}
	if led.Balance() != 500 {
		t.Fatalf("failed repay must not touch the balance")
	}
}

func TestProduceAndConsumeAsset(t *testing.T) {
	cat := catalog.Default()
	eng := New(cat)
	led := ledger.New(100)
	inv := inventory.NewStore()

	buy, err := eng.Apply(context.Background(), mustService(t, cat, "2"), led, inv)
	if err != nil {
		t.Fatalf("buying data feed failed: %v", err)
	}
	if buy.ProducedAsset == nil || buy.ProducedAsset.AssetID != "pdp" {
		t.Fatalf("expected a produced pdp asset, got %+v", buy.ProducedAsset)
	}
	if led.Balance() != 25 || inv.Len() != 1 {
		t.Fatalf("unexpected state after buy: balance=%f assets=%d", led.Balance(), inv.Len())
	}

	sell, err := eng.Apply(context.Background(), mustService(t, cat, "5"), led, inv)
	if err != nil {
		t.Fatalf("selling packet failed: %v", err)
	}
	if sell.ConsumedAsset == nil || sell.ConsumedAsset.AssetID != "pdp" {
		t.Fatalf("expected the pdp asset to be consumed, got %+v", sell.ConsumedAsset)
	}
	if led.Balance() != 110 || inv.Len() != 0 {
		t.Fatalf("unexpected state after sell: balance=%f assets=%d", led.Balance(), inv.Len())
	}
	if sell.Transaction.Quality != ledger.QualityGood {
		t.Fatalf("income should be classified GOOD, got %s", sell.Transaction.Quality)
	}
}

func TestSellWithoutAsset(t *testing.T) {
	cat := catalog.Default()
	eng := New(cat)
	led := ledger.New(100)
	inv := inventory.NewStore()

	_, err := eng.Apply(context.Background(), mustService(t, cat, "5"), led, inv)
	if !errors.Is(err, ErrAssetMissing) {
		t.Fatalf("expected asset-missing error, got %v", err)
	}
	if led.Balance() != 100 || inv.Len() != 0 {
		t.Fatalf("failed sell must not have side effects")
	}
}

func TestInsufficientFunds(t *testing.T) {
	cat := catalog.Default()
	eng := New(cat)
	led := ledger.New(10)
	inv := inventory.NewStore()

	_, err := eng.Apply(context.Background(), mustService(t, cat, "2"), led, inv)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient-funds error, got %v", err)
	}
	if led.Balance() != 10 {
		t.Fatalf("failed purchase must not touch the balance")
	}
}

func TestFreeServiceIsNeutral(t *testing.T) {
	cat := catalog.Default()
	eng := New(cat)
	led := ledger.New(0)
	inv := inventory.NewStore()

	outcome, err := eng.Apply(context.Background(), mustService(t, cat, "1"), led, inv)
	if err != nil {
		t.Fatalf("free service failed: %v", err)
	}
	if outcome.Transaction.Amount != 0 || outcome.Transaction.Quality != ledger.QualityNeutral {
		t.Fatalf("unexpected transaction: %+v", outcome.Transaction)
	}
}

func TestPreconditionOrderRepayBeforeFunds(t *testing.T) {
	// 没有贷款且余额不足时，还款检查先生效。
	cat := catalog.Default()
	eng := New(cat)
	led := ledger.New(10)
	inv := inventory.NewStore()

	_, err := eng.Apply(context.Background(), mustService(t, cat, "7"), led, inv)
	if !errors.Is(err, ErrNoLoanToRepay) {
		t.Fatalf("expected repay check to win over funds check, got %v", err)
	}
}

func TestPreconditionOrderAssetBeforeFunds(t *testing.T) {
	// 资产缺失与余额不足同时成立时，资产检查先生效。
	services := []catalog.Service{
		{ID: "paid", Name: "Paid Transform", Cost: 50, RequiresAssetID: "pdp"},
		{ID: "6", Name: "Loan", Cost: -150},
		{ID: "7", Name: "Repay", Cost: 175},
	}
	cat, err := catalog.New(services, "", "")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	eng := New(cat)
	led := ledger.New(10)
	inv := inventory.NewStore()

	_, applyErr := eng.Apply(context.Background(), mustService(t, cat, "paid"), led, inv)
	if !errors.Is(applyErr, ErrAssetMissing) {
		t.Fatalf("expected asset check to win over funds check, got %v", applyErr)
	}
}
