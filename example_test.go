package mcporchestrator_test

import (
	"context"
	"fmt"

	mcporchestrator "github.com/ajitpratap0/mcp-orchestrator"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel/channeltest"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/model"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

func ExampleRunConversation() {
	ctx := context.Background()

	ch, err := mcporchestrator.ConnectServer(ctx, channeltest.CalculatorServer())
	if err != nil {
		fmt.Println("connect:", err)
		return
	}

	m := model.NewScripted(
		&model.Response{ToolCalls: []protocol.ToolCall{
			{ID: "c1", Name: "add", Arguments: []byte(`{"a":2,"b":3}`)},
		}},
		&model.Response{Content: "2 + 3 = 5"},
	)

	res, err := mcporchestrator.RunConversation(ctx,
		[]mcporchestrator.Message{mcporchestrator.UserMessage("what is 2 + 3?")},
		[]mcporchestrator.Registration{{ID: "calc", Channel: ch}},
		m,
	)
	if err != nil {
		fmt.Println("run:", err)
		return
	}

	for _, msg := range res.Transcript.Messages() {
		switch {
		case len(msg.ToolCalls) > 0:
			fmt.Printf("%s: call %s\n", msg.Role, msg.ToolCalls[0].Name)
		case msg.Role == protocol.RoleTool:
			fmt.Printf("%s: %s -> %s\n", msg.Role, msg.ToolCallID, msg.Content)
		default:
			fmt.Printf("%s: %s\n", msg.Role, msg.Content)
		}
	}
	fmt.Println(res.Status)

	// Output:
	// user: what is 2 + 3?
	// assistant: call add
	// tool: c1 -> 5
	// assistant: 2 + 3 = 5
	// completed
}
