package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// toolLoop drives a bounded model/tool conversation. Each iteration asks
// the model for the next step; tool calls are executed and fed back as
// tool messages, a plain reply ends the loop. Tool execution errors are
// reported to the model as error text so the agent can still produce an
// answer. The step cap keeps a model that will not stop calling tools
// from running forever.
func toolLoop(ctx context.Context, cm model.ToolCallingChatModel, toolSet []tool.BaseTool,
	messages []*schema.Message, maxSteps int, log *zap.SugaredLogger) (string, error) {

	infos := make([]*schema.ToolInfo, 0, len(toolSet))
	invokables := make(map[string]tool.InvokableTool, len(toolSet))
	for _, t := range toolSet {
		info, err := t.Info(ctx)
		if err != nil {
			return "", fmt.Errorf("tool info: %w", err)
		}
		inv, ok := t.(tool.InvokableTool)
		if !ok {
			return "", fmt.Errorf("tool %s is not invokable", info.Name)
		}
		infos = append(infos, info)
		invokables[info.Name] = inv
	}

	bound := cm
	if len(infos) > 0 {
		var err error
		bound, err = cm.WithTools(infos)
		if err != nil {
			return "", fmt.Errorf("bind tools: %w", err)
		}
	}

	for step := 0; step < maxSteps; step++ {
		msg, err := bound.Generate(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("model generate: %w", err)
		}

		if len(msg.ToolCalls) == 0 {
			return MessageText(msg), nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			result := runOneTool(ctx, invokables, call, log)
			messages = append(messages, schema.ToolMessage(result, call.ID))
		}
	}

	// Step budget exhausted: ask for a final answer without tools so the
	// run still produces a report.
	final, err := cm.Generate(ctx, append(messages,
		schema.UserMessage("Tool budget exhausted. Provide your final analysis now using the information gathered so far.")))
	if err != nil {
		return "", fmt.Errorf("model generate after tool budget: %w", err)
	}
	return MessageText(final), nil
}

func runOneTool(ctx context.Context, invokables map[string]tool.InvokableTool,
	call schema.ToolCall, log *zap.SugaredLogger) string {

	name := call.Function.Name
	inv, ok := invokables[name]
	if !ok {
		log.Warnw("model called unknown tool", "tool", name)
		return fmt.Sprintf("Error: unknown tool %q", name)
	}

	result, err := inv.InvokableRun(ctx, call.Function.Arguments)
	if err != nil {
		log.Warnw("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("Error executing %s: %v", name, err)
	}
	return result
}
