package tools

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/opshawk/opshawk/internal/ai/safety"
	"github.com/opshawk/opshawk/internal/config"
)

func runCommandTool() RegisteredTool {
	return RegisteredTool{
		Definition: Tool{
			Name:        "run_command",
			Description: "Run an allowlisted read-only diagnostic command",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]PropertySchema{
					"command": {Type: "string", Description: "Command name, e.g. docker or systemctl"},
					"args":    {Type: "array", Description: "Command arguments"},
				},
				Required: []string{"command"},
			},
		},
		Handler: handleRunCommand,
	}
}

func handleRunCommand(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error) {
	if e.runner == nil {
		return NewErrorResultf("command execution is not available"), nil
	}

	command := stringArg(args, "command", "")
	if command == "" {
		return NewErrorResultf("command is required"), nil
	}
	cmdArgs := stringSliceArg(args, "args")

	decision := safety.EvaluateCommand(command, cmdArgs)
	if !decision.Allowed {
		log.Debug().
			Str("command", command).
			Strs("args", cmdArgs).
			Str("reason", decision.Reason).
			Msg("Command rejected by policy")
		return NewErrorResultf("command rejected: %s", decision.Reason), nil
	}

	res, err := e.runner.Run(ctx, command, cmdArgs)
	if err != nil {
		return CallToolResult{}, err
	}
	return NewJSONResult(CommandResult{
		Command:  command + " " + strings.Join(cmdArgs, " "),
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}), nil
}

// stringSliceArg extracts a []string argument. JSON arrays decode as
// []interface{}; non-string elements are skipped.
func stringSliceArg(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
