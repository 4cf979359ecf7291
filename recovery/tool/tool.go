// Package tool defines side-effecting tools that computations call, and a
// wrapper that records their outputs as recovery steps.
package tool

import (
	"context"

	"github.com/dshills/recovery-go/recovery"
)

// Tool is an external action with map-shaped input and output.
type Tool interface {
	Name() string
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}

// Checkpointed returns a Tool whose calls are steps of inst. On a resumed
// run a recorded output is returned without calling t again, so a tool
// with side effects (a POST, a payment, an email) runs at most once per
// recorded step.
func Checkpointed(inst *recovery.Instance, t Tool) Tool {
	return &checkpointed{inst: inst, tool: t}
}

type checkpointed struct {
	inst *recovery.Instance
	tool Tool
}

func (c *checkpointed) Name() string { return c.tool.Name() }

func (c *checkpointed) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	return recovery.StepAs(ctx, c.inst, func(ctx context.Context) (map[string]interface{}, error) {
		return c.tool.Call(ctx, input)
	})
}
