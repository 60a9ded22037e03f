package oracle

import (
	"context"
	"strings"

	"AgentCoin-Sim/internal/catalog"
	"AgentCoin-Sim/internal/inventory"
)

// Snapshot 描述一次决策所需的完整经济状态，对预言机而言是不可变的。
type Snapshot struct {
	Goal        string            `json:"goal"`
	Balance     float64           `json:"balance"`
	Debt        float64           `json:"debt"`
	Services    []catalog.Service `json:"services"`
	OwnedAssets []inventory.Asset `json:"owned_assets"`
}

// ActionKind 是预言机动作的标签类型，在边界处解析一次，下游不再处理原始字符串。
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionWait
	ActionFinish
	ActionUseService
)

// useServicePrefix 是服务调用动作的线层前缀。
const useServicePrefix = "USE_SERVICE_"

// Action 是解析后的动作。ServiceID 仅在 Kind 为 ActionUseService 时有效，
// Raw 保留原始 token 供日志使用。
type Action struct {
	Kind      ActionKind
	ServiceID string
	Raw       string
}

// Decision 是预言机对一次快照的回答。
type Decision struct {
	Action Action
	Reason string
}

// Oracle 定义了决策预言机的统一接口。实现可以是大模型、规则引擎或人工。
type Oracle interface {
	Decide(ctx context.Context, snapshot Snapshot) (*Decision, error)
}

// ParseAction 在预言机边界将原始动作 token 解析为带标签的 Action。
func ParseAction(raw string) Action {
	token := strings.TrimSpace(raw)
	switch {
	case token == "WAIT":
		return Action{Kind: ActionWait, Raw: token}
	case token == "FINISH":
		return Action{Kind: ActionFinish, Raw: token}
	case strings.HasPrefix(token, useServicePrefix):
		return Action{
			Kind:      ActionUseService,
			ServiceID: strings.TrimPrefix(token, useServicePrefix),
			Raw:       token,
		}
	default:
		return Action{Kind: ActionUnknown, Raw: token}
	}
}
