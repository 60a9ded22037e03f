package actlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"AgentCoin-Sim/pkg/logger"
)

// Type 标记日志条目的类别。
type Type string

const (
	TypeInfo         Type = "INFO"
	TypeAgentThought Type = "AGENT_THOUGHT"
	TypeAction       Type = "ACTION"
	TypeWallet       Type = "WALLET"
	TypeError        Type = "ERROR"
	TypeSystem       Type = "SYSTEM"
)

// Entry 是一条不可变的活动记录。
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
}

// Log 按时间顺序保存活动记录，只追加、从不修改或删除。
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	sink    Sink
	slog    *slog.Logger
}

// Option 定义可选的日志配置。
type Option func(*Log)

// WithSink 配置外部日志分发后端。
func WithSink(sink Sink) Option {
	return func(l *Log) {
		l.sink = sink
	}
}

// New 创建活动日志。
func New(opts ...Option) *Log {
	l := &Log{slog: logger.Named("actlog")}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Append 追加一条活动记录并返回该条目。分发失败只记录日志，不影响追加。
func (l *Log) Append(ctx context.Context, typ Type, message string) Entry {
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      typ,
		Message:   message,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	sink := l.sink
	l.mu.Unlock()

	l.slog.Info(message, slog.String("type", string(typ)), slog.String("entry_id", entry.ID))

	if sink != nil {
		if err := sink.Emit(ctx, entry); err != nil {
			l.slog.Error("日志分发失败", slog.Any("error", err), slog.String("entry_id", entry.ID))
		}
	}
	return entry
}

// Entries 返回全部活动记录的副本，保持追加顺序。
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Len 返回活动记录数量。
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
