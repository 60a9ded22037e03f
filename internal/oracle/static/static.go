// Package static provides the "null oracle": a configuration-selected
// fallback that always chooses WAIT. It is wired in at startup when no API
// credentials are configured, so a missing key never fails a decision cycle.
package static

import (
	"context"

	"AgentCoin-Sim/internal/oracle"
)

// Oracle 总是返回 WAIT 的空预言机。
type Oracle struct {
	reason string
}

// defaultReason 对应未配置凭证时的安全默认决策。
const defaultReason = "API Key not configured. Falling back to default action."

// New 创建空预言机。reason 为空时使用默认说明。
func New(reason string) *Oracle {
	if reason == "" {
		reason = defaultReason
	}
	return &Oracle{reason: reason}
}

// Decide 实现 oracle.Oracle。
func (o *Oracle) Decide(ctx context.Context, _ oracle.Snapshot) (*oracle.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &oracle.Decision{
		Action: oracle.ParseAction("WAIT"),
		Reason: o.reason,
	}, nil
}
