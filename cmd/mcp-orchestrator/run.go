package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/model"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/orchestrator"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

func newRunCmd(cfgPath *string) *cobra.Command {
	var (
		prompt string
		system string
		script string
		output string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one conversation and print its transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			if script == "" {
				script = a.cfg.Model.Script
			}
			if script == "" {
				return fmt.Errorf("no model script: set model.script or pass --script")
			}
			m, err := model.LoadScriptFile(script)
			if err != nil {
				return err
			}

			var seed []protocol.Message
			if system != "" {
				seed = append(seed, protocol.SystemMessage(system))
			}
			seed = append(seed, protocol.UserMessage(prompt))

			opts := append(a.cfg.OrchestratorOptions(),
				orchestrator.WithLogger(a.logger),
				orchestrator.WithRecorder(a.recorder),
				orchestrator.WithChannelOptions(channel.WithClientInfo("mcp-orchestrator", version)),
			)
			if a.tracing != nil {
				opts = append(opts, orchestrator.WithTracer(a.tracing.Tracer()))
			}

			res, runErr := orchestrator.RunConversation(ctx, seed, a.cfg.Registrations(), m, opts...)
			if res != nil {
				if err := printResult(cmd.OutOrStdout(), res, output); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "user message that starts the conversation")
	cmd.Flags().StringVar(&system, "system", "", "optional system message")
	cmd.Flags().StringVar(&script, "script", "", "model script, overrides model.script")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

type resultView struct {
	RunID      string             `json:"run_id"`
	Status     string             `json:"status"`
	Reason     string             `json:"reason,omitempty"`
	Iterations int                `json:"iterations"`
	Messages   []protocol.Message `json:"messages"`
}

func printResult(w io.Writer, res *orchestrator.Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resultView{
			RunID:      res.RunID,
			Status:     string(res.Status),
			Reason:     res.Reason(),
			Iterations: res.Iterations,
			Messages:   res.Transcript.Messages(),
		})
	case "text", "":
		for _, m := range res.Transcript.Messages() {
			fmt.Fprintln(w, formatMessage(m))
		}
		fmt.Fprintf(w, "-- %s after %d model calls", res.Status, res.Iterations)
		if reason := res.Reason(); reason != "" {
			fmt.Fprintf(w, ": %s", reason)
		}
		fmt.Fprintln(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func formatMessage(m protocol.Message) string {
	switch {
	case m.Role == protocol.RoleTool:
		label := "tool " + m.ToolName
		if m.IsError {
			label += " error"
		}
		return fmt.Sprintf("[%s #%s] %s", label, m.ToolCallID, m.Content)
	case len(m.ToolCalls) > 0:
		calls := make([]string, len(m.ToolCalls))
		for i, c := range m.ToolCalls {
			calls[i] = fmt.Sprintf("%s(%s) #%s", c.Name, string(c.Arguments), c.ID)
		}
		text := "[assistant] -> " + strings.Join(calls, ", ")
		if m.Content != "" {
			text = "[assistant] " + m.Content + "\n" + text
		}
		return text
	default:
		return fmt.Sprintf("[%s] %s", m.Role, m.Content)
	}
}
