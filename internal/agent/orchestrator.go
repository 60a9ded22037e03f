package agent

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"AgentCoin-Sim/internal/actlog"
	"AgentCoin-Sim/internal/catalog"
	"AgentCoin-Sim/internal/chain"
	"AgentCoin-Sim/internal/engine"
	xerrors "AgentCoin-Sim/internal/errors"
	"AgentCoin-Sim/internal/inventory"
	"AgentCoin-Sim/internal/ledger"
	"AgentCoin-Sim/internal/observability/alerting"
	"AgentCoin-Sim/internal/observability/metrics"
	"AgentCoin-Sim/internal/oracle"
	"AgentCoin-Sim/pkg/logger"
)

// defaultTickInterval 是两次决策之间的默认间隔。
const defaultTickInterval = 8 * time.Second

var (
	// ErrAlreadyRunning 表示智能体已经在运行。
	ErrAlreadyRunning = xerrors.New(xerrors.CodeConflict, "智能体已在运行")
	// ErrNotRunning 表示智能体未在运行。
	ErrNotRunning = xerrors.New(xerrors.CodeConflict, "智能体未在运行")
	// ErrGoalLocked 表示运行期间不允许修改目标。
	ErrGoalLocked = xerrors.New(xerrors.CodeConflict, "运行期间不能修改目标")
)

// Orchestrator 驱动决策周期：构建快照、询问预言机、路由动作、推进状态机。
// 所有可变的编排状态都集中在这一个对象上，不依赖任何全局变量。
type Orchestrator struct {
	mu         sync.Mutex
	state      State
	running    bool
	inFlight   bool
	generation uint64
	cycles     uint64
	cancel     context.CancelFunc

	catalog   *catalog.Catalog
	ledger    *ledger.Ledger
	inventory *inventory.Store
	activity  *actlog.Log
	oracle    oracle.Oracle
	engine    *engine.Engine
	observer  chain.Observer
	alerter   alerting.Dispatcher

	tick          time.Duration
	oracleTimeout time.Duration
	log           *slog.Logger
}

// Option 定义可选的编排器配置。
type Option func(*Orchestrator)

// WithTickInterval 设置两次决策之间的间隔。
func WithTickInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.tick = d
		}
	}
}

// WithOracleTimeout 设置单次预言机调用的超时时间。
func WithOracleTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.oracleTimeout = d
		}
	}
}

// WithChainObserver 配置只读的链上观察器，用于丰富周期审计日志。
func WithChainObserver(observer chain.Observer) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// WithAlertDispatcher 配置周期失败时的告警派发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) Option {
	return func(o *Orchestrator) {
		o.alerter = dispatcher
	}
}

// New 创建编排器。初始状态为 STOPPED。
func New(goal string, cat *catalog.Catalog, led *ledger.Ledger, inv *inventory.Store,
	activity *actlog.Log, orc oracle.Oracle, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		state:     State{Status: StatusStopped, Goal: goal},
		catalog:   cat,
		ledger:    led,
		inventory: inv,
		activity:  activity,
		oracle:    orc,
		engine:    engine.New(cat),
		tick:      defaultTickInterval,
		log:       logger.Named("orchestrator"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// State 返回智能体状态的副本。
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Running 判断调度循环是否在运行。
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Start 启动调度循环：立即执行一次决策周期，随后按固定间隔触发。
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.running = true
	o.generation++
	gen := o.generation
	o.state.Status = StatusIdle
	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()

	o.activity.Append(ctx, actlog.TypeSystem, "Agent started.")
	go o.loop(loopCtx, gen)
	return nil
}

// Stop 停止调度循环并把状态置为 STOPPED。正在进行的预言机调用不会被
// 取消，其迟到的响应会被丢弃，不再改动账本、库存或状态。
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return ErrNotRunning
	}
	o.state.Status = StatusStopped
	cancel := o.haltLocked()
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.activity.Append(context.Background(), actlog.TypeSystem, "Agent stopped.")
	return nil
}

// haltLocked 停掉调度循环但不改动状态机。调用方必须持有锁；
// 返回的取消函数应在释放锁之后调用。
func (o *Orchestrator) haltLocked() context.CancelFunc {
	o.running = false
	o.generation++
	cancel := o.cancel
	o.cancel = nil
	return cancel
}

// SetGoal 更新智能体目标。运行期间拒绝修改，避免在决策中途改变目标。
func (o *Orchestrator) SetGoal(goal string) error {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "目标不能为空")
	}
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrGoalLocked
	}
	o.state.Goal = goal
	o.mu.Unlock()

	o.activity.Append(context.Background(), actlog.TypeSystem, fmt.Sprintf("Agent goal updated: %q", goal))
	return nil
}

// loop 是调度循环：启动时立即执行一个周期，之后由定时器驱动。
func (o *Orchestrator) loop(ctx context.Context, gen uint64) {
	o.runCycle(ctx, gen)

	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.runCycle(ctx, gen)
		}
	}
}

// runCycle 执行一次完整的决策周期。同一时刻最多只有一个周期在进行：
// 上一周期的预言机调用未返回时，新的触发会被直接跳过。
func (o *Orchestrator) runCycle(ctx context.Context, gen uint64) {
	o.mu.Lock()
	if !o.running || gen != o.generation {
		o.mu.Unlock()
		return
	}
	if o.inFlight {
		o.mu.Unlock()
		o.log.Warn("上一周期尚未完成，跳过本次触发")
		return
	}
	if o.state.Status == StatusSuccess {
		// SUCCESS 是终止状态：停止调度但保留 SUCCESS 本身。
		cancel := o.haltLocked()
		o.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		o.activity.Append(ctx, actlog.TypeSystem, "Agent has completed its goal. Stopping.")
		return
	}
	o.inFlight = true
	o.cycles++
	cycle := o.cycles
	o.state.Status = StatusThinking
	goal := o.state.Goal
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		// 周期结束后把非终止状态归位到 IDLE，保证下一次触发从干净状态开始。
		if o.running && gen == o.generation &&
			o.state.Status != StatusSuccess && o.state.Status != StatusStopped && o.state.Status != StatusError {
			o.state.Status = StatusIdle
		}
		o.mu.Unlock()
	}()

	o.activity.Append(ctx, actlog.TypeInfo, "Agent is thinking...")

	ledgerSnap := o.ledger.Snapshot()
	snapshot := oracle.Snapshot{
		Goal:        goal,
		Balance:     ledgerSnap.Balance,
		Debt:        ledgerSnap.Debt,
		Services:    o.catalog.Services(),
		OwnedAssets: o.inventory.List(),
	}

	// 预言机调用是周期内唯一的挂起点。stop 不取消进行中的调用，
	// 因此这里脱离循环上下文，只保留超时控制。
	oracleCtx := context.WithoutCancel(ctx)
	if o.oracleTimeout > 0 {
		var cancelOracle context.CancelFunc
		oracleCtx, cancelOracle = context.WithTimeout(oracleCtx, o.oracleTimeout)
		defer cancelOracle()
	}
	oracleStart := time.Now()
	decision, err := o.oracle.Decide(oracleCtx, snapshot)
	oracleLatency := time.Since(oracleStart)

	o.mu.Lock()
	stale := !o.running || gen != o.generation
	o.mu.Unlock()
	if stale {
		o.log.Info("智能体已停止，丢弃迟到的预言机响应", slog.Uint64("cycle", cycle))
		return
	}

	if err != nil {
		o.mu.Lock()
		o.state.Status = StatusError
		o.mu.Unlock()
		o.activity.Append(ctx, actlog.TypeError, fmt.Sprintf("Agent cycle failed: %s", errorMessage(err)))
		o.dispatchAlert(ctx, cycle, goal, err)
		metrics.ObserveCycle("", string(StatusError), oracleLatency)
		return
	}

	o.mu.Lock()
	o.state.Status = StatusExecuting
	o.state.LastAction = decision.Action.Raw
	o.state.LastReasoning = decision.Reason
	o.mu.Unlock()

	o.activity.Append(ctx, actlog.TypeAgentThought, fmt.Sprintf("%q", decision.Reason))
	o.activity.Append(ctx, actlog.TypeAction, fmt.Sprintf("Executing action: %s", decision.Action.Raw))

	switch decision.Action.Kind {
	case oracle.ActionUseService:
		o.applyService(ctx, decision.Action.ServiceID)
	case oracle.ActionWait:
		o.activity.Append(ctx, actlog.TypeInfo, "Agent chose to wait.")
	case oracle.ActionFinish:
		o.mu.Lock()
		o.state.Status = StatusSuccess
		o.mu.Unlock()
		o.activity.Append(ctx, actlog.TypeSystem, fmt.Sprintf("Goal %q achieved!", goal))
	default:
		o.activity.Append(ctx, actlog.TypeError, fmt.Sprintf("Agent chose an unknown action: %s", decision.Action.Raw))
	}

	o.auditCycle(ctx, cycle, decision.Action.Raw, oracleLatency)
}

// applyService 解析服务并交给执行引擎。前置条件失败只记录错误日志，
// 不产生任何账本或库存副作用。
func (o *Orchestrator) applyService(ctx context.Context, serviceID string) {
	svc, ok := o.catalog.Lookup(serviceID)
	if !ok {
		o.activity.Append(ctx, actlog.TypeError, fmt.Sprintf("Attempted to use unknown service ID: %s", serviceID))
		return
	}

	outcome, err := o.engine.Apply(ctx, svc, o.ledger, o.inventory)
	if err != nil {
		o.activity.Append(ctx, actlog.TypeError, preconditionMessage(svc, err, o.ledger.Balance()))
		return
	}

	tx := outcome.Transaction
	o.activity.Append(ctx, actlog.TypeWallet,
		fmt.Sprintf("Transaction: %s | Amount: %.2f AGENT-COIN | New Balance: %.2f",
			tx.Description, tx.Amount, o.ledger.Balance()))
	o.activity.Append(ctx, actlog.TypeInfo, fmt.Sprintf("Successfully used service: %s.", svc.Name))

	if outcome.DebtChanged {
		o.activity.Append(ctx, actlog.TypeInfo, fmt.Sprintf("Debt updated: %.2f AGENT-COIN.", outcome.NewDebt))
	}
	if outcome.ConsumedAsset != nil {
		o.activity.Append(ctx, actlog.TypeInfo, fmt.Sprintf("Consumed asset: %s.", outcome.ConsumedAsset.Name))
	}
	if outcome.ProducedAsset != nil {
		o.activity.Append(ctx, actlog.TypeInfo, fmt.Sprintf("Acquired asset: %s.", outcome.ProducedAsset.Name))
	}
}

// preconditionMessage 将引擎错误转成面板可读的描述。
func preconditionMessage(svc catalog.Service, err error, balance float64) string {
	switch {
	case stdErrors.Is(err, engine.ErrLoanOutstanding):
		return fmt.Sprintf("Failed to use %s: A loan is already outstanding.", svc.Name)
	case stdErrors.Is(err, engine.ErrNoLoanToRepay):
		return fmt.Sprintf("Failed to use %s: No loan to repay.", svc.Name)
	case stdErrors.Is(err, engine.ErrAssetMissing):
		return fmt.Sprintf("Failed to use %s: Required asset not found in inventory.", svc.Name)
	case stdErrors.Is(err, engine.ErrInsufficientFunds):
		return fmt.Sprintf("Insufficient funds to use %s. Cost: %.2f, Balance: %.2f.", svc.Name, svc.Cost, balance)
	default:
		return fmt.Sprintf("Failed to use %s: %s", svc.Name, errorMessage(err))
	}
}

// errorMessage 提取统一错误类型的可读信息。
func errorMessage(err error) string {
	if e, ok := xerrors.From(err); ok {
		return e.Message()
	}
	return err.Error()
}

// dispatchAlert 将周期级失败交给告警派发器。
func (o *Orchestrator) dispatchAlert(ctx context.Context, cycle uint64, goal string, err error) {
	if o.alerter == nil {
		return
	}
	event := alerting.Event{
		Code:       xerrors.CodeOf(err),
		Message:    err.Error(),
		Severity:   xerrors.SeverityOf(err),
		Goal:       goal,
		Cycle:      cycle,
		OccurredAt: time.Now(),
	}
	if alertErr := o.alerter.Notify(ctx, event); alertErr != nil {
		o.log.Error("告警派发失败", slog.Any("error", alertErr))
	}
}

// auditCycle 在审计日志中记录一次周期的摘要，并附带链上观察信息。
func (o *Orchestrator) auditCycle(ctx context.Context, cycle uint64, action string, oracleLatency time.Duration) {
	status := string(o.State().Status)
	metrics.ObserveCycle(action, status, oracleLatency)
	metrics.SetWallet(o.ledger.Balance(), o.ledger.Debt(), o.inventory.Len())

	attrs := []any{
		slog.Uint64("cycle", cycle),
		slog.String("action", action),
		slog.String("status", status),
		slog.Float64("balance", o.ledger.Balance()),
		slog.Float64("debt", o.ledger.Debt()),
		slog.Int("assets", o.inventory.Len()),
	}
	if o.observer != nil {
		if snap, err := o.observer.Observe(ctx); err != nil {
			o.log.Warn("获取链上观察信息失败", slog.Any("error", err))
		} else {
			attrs = append(attrs,
				slog.String("chain_id", snap.ChainID),
				slog.String("block_number", snap.BlockNumber),
			)
		}
	}
	logger.Audit().Info("决策周期完成", attrs...)
}
