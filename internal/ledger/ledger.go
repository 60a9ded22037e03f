package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"AgentCoin-Sim/pkg/logger"
)

// Quality 是对一笔交易是否有利于智能体的粗粒度分类。
type Quality string

const (
	QualityGood    Quality = "GOOD"
	QualityNeutral Quality = "NEUTRAL"
	// QualityBad 为保留分类，当前没有任何规则会产生它。
	QualityBad Quality = "BAD"
)

// Transaction 描述一笔不可变的账务记录。Amount 为正表示入账，为负表示出账。
type Transaction struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Quality     Quality   `json:"quality"`
}

// Snapshot 是账本的只读视图，供调度器传递给决策预言机。
type Snapshot struct {
	Balance      float64       `json:"balance"`
	Debt         float64       `json:"debt"`
	Transactions []Transaction `json:"transactions"`
}

// Archive 定义交易的旁路持久化能力。归档失败只记录日志，不影响账本。
type Archive interface {
	Record(ctx context.Context, tx *Transaction) error
}

// Ledger 持有钱包余额、债务与交易历史。
type Ledger struct {
	mu           sync.RWMutex
	initial      float64
	balance      float64
	debt         float64
	transactions []Transaction
	archive      Archive
	log          *slog.Logger
}

// Option 定义可选的账本配置。
type Option func(*Ledger)

// WithArchive 配置交易归档后端。
func WithArchive(archive Archive) Option {
	return func(l *Ledger) {
		l.archive = archive
	}
}

// New 创建初始余额为 initialBalance 的账本。
func New(initialBalance float64, opts ...Option) *Ledger {
	l := &Ledger{
		initial: initialBalance,
		balance: initialBalance,
		log:     logger.Named("ledger"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Apply 追加一笔交易并在同一原子步骤内调整余额。
func (l *Ledger) Apply(ctx context.Context, description string, amount float64, quality Quality) Transaction {
	l.mu.Lock()
	tx := Transaction{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Description: description,
		Amount:      amount,
		Quality:     quality,
	}
	l.transactions = append(l.transactions, tx)
	l.balance += amount
	l.assertConsistent()
	balance := l.balance
	archive := l.archive
	l.mu.Unlock()

	l.log.Info("交易入账",
		slog.String("tx_id", tx.ID),
		slog.String("description", description),
		slog.Float64("amount", amount),
		slog.Float64("balance", balance),
		slog.String("quality", string(quality)),
	)

	if archive != nil {
		if err := archive.Record(ctx, &tx); err != nil {
			l.log.Error("交易归档失败", slog.Any("error", err), slog.String("tx_id", tx.ID))
		}
	}
	return tx
}

// SetDebt 设置未偿还债务。债务为负属于编程错误，直接断言。
func (l *Ledger) SetDebt(debt float64) {
	if debt < 0 {
		panic(fmt.Sprintf("ledger: 债务不能为负: %f", debt))
	}
	l.mu.Lock()
	l.debt = debt
	l.mu.Unlock()
}

// Balance 返回当前余额。
func (l *Ledger) Balance() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

// Debt 返回当前未偿还债务。
func (l *Ledger) Debt() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.debt
}

// Snapshot 返回账本的只读快照，交易历史保持插入顺序。
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Balance:      l.balance,
		Debt:         l.debt,
		Transactions: append([]Transaction(nil), l.transactions...),
	}
}

// assertConsistent 校验余额恒等式 balance == initial + Σ amount。
// 调用方必须持有写锁。不变量被破坏属于编程错误。
func (l *Ledger) assertConsistent() {
	sum := 0.0
	for _, tx := range l.transactions {
		sum += tx.Amount
	}
	if math.Abs(l.balance-(l.initial+sum)) > 1e-6 {
		panic(fmt.Sprintf("ledger: 余额不变量被破坏: balance=%f initial=%f sum=%f", l.balance, l.initial, sum))
	}
}
