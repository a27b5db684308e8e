package pipeline

import "github.com/zen-systems/crewforge/pkg/adapter"

// CallUsage is the token usage reported for one task.
type CallUsage struct {
	TaskID  string        `json:"task_id"`
	Adapter string        `json:"adapter"`
	Model   string        `json:"model"`
	Usage   adapter.Usage `json:"usage"`
}

type usageTracker struct {
	total adapter.Usage
	calls []CallUsage
}

func (t *usageTracker) record(taskID, adapterName, model string, u *adapter.Usage) {
	if u == nil {
		return
	}
	usage := u.Normalize()
	t.total = t.total.Add(usage)
	t.calls = append(t.calls, CallUsage{TaskID: taskID, Adapter: adapterName, Model: model, Usage: usage})
}
