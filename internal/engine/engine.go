// Package engine validates service preconditions and applies the economic
// effect of a chosen service atomically across the ledger and the inventory.
// A failed precondition leaves both completely untouched.
package engine

import (
	"context"
	"fmt"

	"AgentCoin-Sim/internal/catalog"
	xerrors "AgentCoin-Sim/internal/errors"
	"AgentCoin-Sim/internal/inventory"
	"AgentCoin-Sim/internal/ledger"
)

// 服务前置条件对应的错误码。
const (
	CodeLoanOutstanding   xerrors.Code = "LOAN_ALREADY_OUTSTANDING"
	CodeNoLoanToRepay     xerrors.Code = "NO_LOAN_TO_REPAY"
	CodeAssetMissing      xerrors.Code = "REQUIRED_ASSET_MISSING"
	CodeInsufficientFunds xerrors.Code = "INSUFFICIENT_FUNDS"
)

var (
	// ErrLoanOutstanding 表示已有未偿还贷款时再次借款。
	ErrLoanOutstanding = xerrors.New(CodeLoanOutstanding, "已有未偿还的贷款")
	// ErrNoLoanToRepay 表示没有贷款可还。
	ErrNoLoanToRepay = xerrors.New(CodeNoLoanToRepay, "当前没有需要偿还的贷款")
	// ErrAssetMissing 表示库存中缺少服务要求的资产类型。
	ErrAssetMissing = xerrors.New(CodeAssetMissing, "库存中缺少所需资产")
	// ErrInsufficientFunds 表示余额不足以支付服务费用。
	ErrInsufficientFunds = xerrors.New(CodeInsufficientFunds, "余额不足")
)

func init() {
	xerrors.Register(CodeLoanOutstanding, xerrors.Attributes{
		Message:  "loan already outstanding",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeNoLoanToRepay, xerrors.Attributes{
		Message:  "no loan to repay",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeAssetMissing, xerrors.Attributes{
		Message:  "required asset missing",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeInsufficientFunds, xerrors.Attributes{
		Message:  "insufficient funds",
		Severity: xerrors.SeverityInfo,
	})
}

// Outcome 汇总一次成功执行的全部副作用，供调度器逐条记录。
type Outcome struct {
	Transaction   ledger.Transaction
	DebtChanged   bool
	NewDebt       float64
	ConsumedAsset *inventory.Asset
	ProducedAsset *inventory.Asset
}

// Engine 是服务执行引擎。
type Engine struct {
	catalog *catalog.Catalog
}

// New 创建服务执行引擎。
func New(cat *catalog.Catalog) *Engine {
	return &Engine{catalog: cat}
}

// Apply 校验前置条件并执行服务效果。前置条件按固定顺序检查，第一个失败者
// 生效且不产生任何副作用；成功时所有效果作为一个逻辑单元施加。
func (e *Engine) Apply(ctx context.Context, svc catalog.Service, led *ledger.Ledger, inv *inventory.Store) (*Outcome, error) {
	debt := led.Debt()

	// 1. 借款服务：已有贷款未偿还。
	if e.catalog.IsLoan(svc.ID) && debt > 0 {
		return nil, ErrLoanOutstanding
	}
	// 2. 还款服务：没有贷款可还。
	if e.catalog.IsRepay(svc.ID) && debt == 0 {
		return nil, ErrNoLoanToRepay
	}
	// 3. 所需资产缺失。
	if svc.RequiresAssetID != "" && !inv.HasType(svc.RequiresAssetID) {
		return nil, ErrAssetMissing
	}
	// 4. 余额不足。
	if led.Balance() < svc.Cost {
		return nil, ErrInsufficientFunds
	}

	// 交易质量：收款或还款为 GOOD，其余为 NEUTRAL。BAD 为保留分类。
	quality := ledger.QualityNeutral
	if svc.Cost < 0 || e.catalog.IsRepay(svc.ID) {
		quality = ledger.QualityGood
	}

	outcome := &Outcome{}
	outcome.Transaction = led.Apply(ctx, fmt.Sprintf("Payment for %s", svc.Name), -svc.Cost, quality)

	switch {
	case e.catalog.IsLoan(svc.ID):
		led.SetDebt(-svc.Cost)
		outcome.DebtChanged = true
		outcome.NewDebt = -svc.Cost
	case e.catalog.IsRepay(svc.ID):
		led.SetDebt(0)
		outcome.DebtChanged = true
		outcome.NewDebt = 0
	}

	if svc.RequiresAssetID != "" {
		// 前置条件已确认资产存在；消费最先找到的一个实例。
		if asset, ok := inv.RemoveFirst(svc.RequiresAssetID); ok {
			outcome.ConsumedAsset = &asset
		}
	}
	if svc.ProducesAsset != nil {
		asset := inv.Add(svc.ProducesAsset.AssetID, svc.ProducesAsset.Name)
		outcome.ProducedAsset = &asset
	}
	return outcome, nil
}
