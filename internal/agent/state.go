package agent

// Status 表示智能体在生命周期中的状态。
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusThinking  Status = "THINKING"
	StatusExecuting Status = "EXECUTING"
	StatusSuccess   Status = "SUCCESS"
	StatusError     Status = "ERROR"
	StatusStopped   Status = "STOPPED"
)

// Terminal 判断该状态是否终止自动调度。ERROR 是瞬态状态：调度器在 ERROR
// 之后继续触发周期，由下一次成功的周期覆盖它。
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusStopped
}

// State 是智能体的可观测状态。LastAction 与 LastReasoning 在首次决策前为空。
type State struct {
	Status        Status `json:"status"`
	Goal          string `json:"goal"`
	LastAction    string `json:"last_action,omitempty"`
	LastReasoning string `json:"last_reasoning,omitempty"`
}
