package actlog

import (
	"context"
	"errors"
	"sync"
)

// Sink 将活动记录分发给外部消费者。
type Sink interface {
	Emit(ctx context.Context, entry Entry) error
	Close() error
}

// MemorySink 使用带缓冲的 channel 模拟外部分发，主要用于测试。
type MemorySink struct {
	ch     chan Entry
	mu     sync.Mutex
	closed bool
}

// NewMemorySink 创建一个内存分发器。
func NewMemorySink(size int) *MemorySink {
	if size <= 0 {
		size = 64
	}
	return &MemorySink{ch: make(chan Entry, size)}
}

// Emit 将记录写入 channel。缓冲已满时丢弃最早的记录。
func (s *MemorySink) Emit(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("分发器已关闭")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- entry:
		return nil
	default:
		select {
		case <-s.ch:
		default:
		}
		s.ch <- entry
		return nil
	}
}

// Feed 返回消费端 channel。
func (s *MemorySink) Feed() <-chan Entry {
	return s.ch
}

// Close 关闭内存分发器。
func (s *MemorySink) Close() error {
	s.mu.Lock()
	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	s.mu.Unlock()
	return nil
}
