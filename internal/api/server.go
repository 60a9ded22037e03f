package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"AgentCoin-Sim/internal/actlog"
	"AgentCoin-Sim/internal/agent"
	"AgentCoin-Sim/internal/catalog"
	xerrors "AgentCoin-Sim/internal/errors"
	"AgentCoin-Sim/internal/inventory"
	"AgentCoin-Sim/internal/ledger"
	"AgentCoin-Sim/internal/observability/metrics"
)

// Server 负责暴露 REST 接口，供展示层驱动与观察智能体。
type Server struct {
	addr         string
	orchestrator *agent.Orchestrator
	ledger       *ledger.Ledger
	inventory    *inventory.Store
	activity     *actlog.Log
	catalog      *catalog.Catalog

	// rootCtx 是调度循环的父上下文；启动智能体不能绑定到单个请求上。
	rootCtx context.Context
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, orc *agent.Orchestrator, led *ledger.Ledger,
	inv *inventory.Store, activity *actlog.Log, cat *catalog.Catalog) *Server {
	return &Server{
		addr:         addr,
		orchestrator: orc,
		ledger:       led,
		inventory:    inv,
		activity:     activity,
		catalog:      cat,
	}
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	s.rootCtx = ctx

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/agent/start", s.handleStart)
	mux.HandleFunc("/api/v1/agent/stop", s.handleStop)
	mux.HandleFunc("/api/v1/agent/goal", s.handleGoal)
	mux.HandleFunc("/api/v1/agent/state", s.handleState)
	mux.HandleFunc("/api/v1/wallet", s.handleWallet)
	mux.HandleFunc("/api/v1/wallet/export", s.handleExport)
	mux.HandleFunc("/api/v1/inventory", s.handleInventory)
	mux.HandleFunc("/api/v1/services", s.handleServices)
	mux.HandleFunc("/api/v1/log", s.handleLog)
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if err := s.orchestrator.Start(s.rootCtx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.orchestrator.State())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if err := s.orchestrator.Stop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.orchestrator.State())
}

func (s *Server) handleGoal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Goal string `json:"goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	if err := s.orchestrator.SetGoal(req.Goal); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.orchestrator.State())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.orchestrator.State())
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.ledger.Snapshot())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	content, err := ledger.ExportCSV(s.ledger.Snapshot().Transactions)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transaction-history.csv"`)
	_, _ = w.Write(content)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.inventory.List())
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.catalog.Services())
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.activity.Entries())
}

// writeJSON 输出 JSON 响应。
func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError 将统一错误类型映射到 HTTP 状态码。
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch xerrors.CodeOf(err) {
	case xerrors.CodeConflict:
		status = http.StatusConflict
	case xerrors.CodeInvalidArgument:
		status = http.StatusBadRequest
	case xerrors.CodeNotFound:
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
