package tools

import (
	"context"
	"fmt"

	"github.com/opshawk/opshawk/internal/config"
)

// builtinTools returns the always-registered tool set in the order it is
// advertised to the model.
func builtinTools() []RegisteredTool {
	return []RegisteredTool{
		systemResourcesTool(),
		diskUsageTool(),
		networksTool(),
		containersTool(),
		containerLogsTool(),
		fail2banStatusTool(),
		readFileTool(),
		runCommandTool(),
	}
}

// stringArg extracts a string argument, returning the default when absent.
func stringArg(args map[string]interface{}, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// intArg extracts an integer argument. JSON numbers decode as float64, but
// structured providers may hand through native ints too.
func intArg(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func systemResourcesTool() RegisteredTool {
	return RegisteredTool{
		Definition: Tool{
			Name:        "get_system_resources",
			Description: "Get CPU, memory, swap and load average for the host",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]PropertySchema{},
			},
		},
		Handler: func(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error) {
			if e.resources == nil {
				return NewErrorResultf("system resource data is not available"), nil
			}
			res, err := e.resources.SystemResources(ctx)
			if err != nil {
				return CallToolResult{}, err
			}
			return NewJSONResult(res), nil
		},
	}
}

func diskUsageTool() RegisteredTool {
	return RegisteredTool{
		Definition: Tool{
			Name:        "get_disk_usage",
			Description: "Get usage for every mounted filesystem",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]PropertySchema{},
			},
		},
		Handler: func(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error) {
			if e.resources == nil {
				return NewErrorResultf("disk usage data is not available"), nil
			}
			disks, err := e.resources.DiskUsage(ctx)
			if err != nil {
				return CallToolResult{}, err
			}
			return NewJSONResult(disks), nil
		},
	}
}

func networksTool() RegisteredTool {
	return RegisteredTool{
		Definition: Tool{
			Name:        "get_networks",
			Description: "List network interfaces with addresses and traffic counters",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]PropertySchema{},
			},
		},
		Handler: func(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error) {
			if e.resources == nil {
				return NewErrorResultf("network data is not available"), nil
			}
			nets, err := e.resources.NetworkInterfaces(ctx)
			if err != nil {
				return CallToolResult{}, err
			}
			return NewJSONResult(nets), nil
		},
	}
}

func containersTool() RegisteredTool {
	return RegisteredTool{
		Definition: Tool{
			Name:        "get_containers",
			Description: "List containers with state, image and port mappings",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]PropertySchema{},
			},
		},
		Handler: func(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error) {
			if e.containers == nil {
				return NewErrorResultf("container runtime is not available"), nil
			}
			containers, err := e.containers.ListContainers(ctx)
			if err != nil {
				return CallToolResult{}, err
			}
			return NewJSONResult(containers), nil
		},
	}
}

func containerLogsTool() RegisteredTool {
	return RegisteredTool{
		Definition: Tool{
			Name:        "get_container_logs",
			Description: "Get recent log lines from a container",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]PropertySchema{
					"container": {Type: "string", Description: "Container name or ID"},
					"lines":     {Type: "integer", Description: "Number of log lines to return", Default: 50},
				},
				Required: []string{"container"},
			},
		},
		Handler: func(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error) {
			if e.containers == nil {
				return NewErrorResultf("container runtime is not available"), nil
			}
			container := stringArg(args, "container", "")
			if container == "" {
				return NewErrorResultf("container is required"), nil
			}
			lines := intArg(args, "lines", 50)
			if lines <= 0 {
				lines = 50
			}
			// The cap wins over whatever the model asked for.
			if lines > caps.MaxLogLines {
				lines = caps.MaxLogLines
			}
			logs, err := e.containers.ContainerLogs(ctx, container, lines)
			if err != nil {
				return CallToolResult{}, err
			}
			if logs == "" {
				return NewTextResult(fmt.Sprintf("no log output for container %s", container)), nil
			}
			return NewTextResult(logs), nil
		},
	}
}

func fail2banStatusTool() RegisteredTool {
	return RegisteredTool{
		Definition: Tool{
			Name:        "get_fail2ban_status",
			Description: "Get fail2ban jail status and banned addresses",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]PropertySchema{},
			},
		},
		Handler: func(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error) {
			if e.security == nil {
				return NewErrorResultf("fail2ban data is not available"), nil
			}
			status, err := e.security.Fail2banStatus(ctx)
			if err != nil {
				return CallToolResult{}, err
			}
			return NewJSONResult(status), nil
		},
	}
}
