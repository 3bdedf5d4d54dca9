package tools

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opshawk/opshawk/internal/agentexec"
	"github.com/opshawk/opshawk/internal/config"
)

type fakeContainers struct {
	lastLines int
	logs      string
	err       error
}

func (f *fakeContainers) ListContainers(ctx context.Context) ([]ContainerInfo, error) {
	return []ContainerInfo{{ID: "abc123", Name: "web", State: "running"}}, f.err
}

func (f *fakeContainers) ContainerLogs(ctx context.Context, nameOrID string, lines int) (string, error) {
	f.lastLines = lines
	return f.logs, f.err
}

type fakeRunner struct {
	lastCommand string
	lastArgs    []string
	result      agentexec.Result
	err         error
}

func (f *fakeRunner) Run(ctx context.Context, command string, args []string) (agentexec.Result, error) {
	f.lastCommand = command
	f.lastArgs = args
	return f.result, f.err
}

func testCaps(dirs ...string) config.Capability {
	return config.Capability{
		AllowedDirectories: dirs,
		MaxFileSizeKB:      64,
		MaxLogLines:        50,
		MaxToolCalls:       40,
		MaxIterations:      10,
	}.Normalize()
}

func resultText(res CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}

func TestExecuteToolUnknownName(t *testing.T) {
	e, err := NewExecutor(ExecutorConfig{})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	res := e.ExecuteTool(context.Background(), "no_such_tool", nil, testCaps())
	if !res.IsError {
		t.Fatal("unknown tool should produce an error result")
	}
	if !strings.Contains(resultText(res), "unknown tool") {
		t.Errorf("unexpected message: %q", resultText(res))
	}
}

func TestExecuteToolHandlerErrorBecomesResult(t *testing.T) {
	e, err := NewExecutor(ExecutorConfig{})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	failing := RegisteredTool{
		Definition: Tool{Name: "ext:always_fails", InputSchema: InputSchema{Type: "object"}},
		Handler: func(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error) {
			return CallToolResult{}, errors.New("backend unavailable")
		},
	}
	if err := e.SetPluginTools([]RegisteredTool{failing}); err != nil {
		t.Fatalf("SetPluginTools: %v", err)
	}
	res := e.ExecuteTool(context.Background(), "ext:always_fails", nil, testCaps())
	if !res.IsError {
		t.Fatal("handler error should produce an error result")
	}
	if !strings.Contains(resultText(res), "backend unavailable") {
		t.Errorf("error detail lost: %q", resultText(res))
	}
}

func TestExecuteToolRecoversPanic(t *testing.T) {
	e, err := NewExecutor(ExecutorConfig{})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	panicking := RegisteredTool{
		Definition: Tool{Name: "ext:panics", InputSchema: InputSchema{Type: "object"}},
		Handler: func(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error) {
			var m map[string]string
			m["boom"] = "boom" // nil map write
			return CallToolResult{}, nil
		},
	}
	if err := e.SetPluginTools([]RegisteredTool{panicking}); err != nil {
		t.Fatalf("SetPluginTools: %v", err)
	}
	res := e.ExecuteTool(context.Background(), "ext:panics", nil, testCaps())
	if !res.IsError {
		t.Fatal("panic should be converted to an error result")
	}
}

func TestExecuteToolScrubsSecrets(t *testing.T) {
	e, err := NewExecutor(ExecutorConfig{})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	leaky := RegisteredTool{
		Definition: Tool{Name: "ext:leaky", InputSchema: InputSchema{Type: "object"}},
		Handler: func(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error) {
			return NewTextResult("config dump: password=hunter2 host=db01"), nil
		},
	}
	if err := e.SetPluginTools([]RegisteredTool{leaky}); err != nil {
		t.Fatalf("SetPluginTools: %v", err)
	}
	res := e.ExecuteTool(context.Background(), "ext:leaky", nil, testCaps())
	text := resultText(res)
	if strings.Contains(text, "hunter2") {
		t.Fatalf("secret leaked through the executor: %q", text)
	}
	if !strings.Contains(text, "host=db01") {
		t.Errorf("non-secret content lost: %q", text)
	}
}

func TestReadFileTraversalDenied(t *testing.T) {
	e, err := NewExecutor(ExecutorConfig{})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	res := e.ExecuteTool(context.Background(), "read_file",
		map[string]interface{}{"path": "/tmp/../etc/passwd"}, testCaps("/tmp"))
	if !res.IsError {
		t.Fatal("traversal outside the allowed root should be denied")
	}
}

func TestReadFileDotEnvDenied(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("SECRET=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	e, err := NewExecutor(ExecutorConfig{})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	res := e.ExecuteTool(context.Background(), "read_file",
		map[string]interface{}{"path": envPath}, testCaps(dir))
	if !res.IsError {
		t.Fatal(".env must not be readable")
	}
}

func TestReadFileAllowed(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	if err := os.WriteFile(logPath, []byte("service started\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := NewExecutor(ExecutorConfig{})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	res := e.ExecuteTool(context.Background(), "read_file",
		map[string]interface{}{"path": logPath}, testCaps(dir))
	if res.IsError {
		t.Fatalf("expected success, got %q", resultText(res))
	}
	if !strings.Contains(resultText(res), "service started") {
		t.Errorf("file content missing: %q", resultText(res))
	}
}

func TestReadFileSizeLimit(t *testing.T) {
	dir := t.TempDir()
	bigPath := filepath.Join(dir, "big.log")
	if err := os.WriteFile(bigPath, make([]byte, 70*1024), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := NewExecutor(ExecutorConfig{})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	caps := testCaps(dir) // MaxFileSizeKB: 64
	res := e.ExecuteTool(context.Background(), "read_file",
		map[string]interface{}{"path": bigPath}, caps)
	if !res.IsError {
		t.Fatal("oversized file should be rejected")
	}
}

func TestReadFileRejectsNullByteAnywhere(t *testing.T) {
	// The binary check covers the whole buffer, not just a leading window.
	dir := t.TempDir()
	data := bytes.Repeat([]byte("x"), 1024)
	data[700] = 0
	binPath := filepath.Join(dir, "mixed.log")
	if err := os.WriteFile(binPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := NewExecutor(ExecutorConfig{})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	res := e.ExecuteTool(context.Background(), "read_file",
		map[string]interface{}{"path": binPath}, testCaps(dir))
	if !res.IsError {
		t.Fatal("file with a null byte past offset 512 should be rejected")
	}
	if !strings.Contains(resultText(res), "binary") {
		t.Errorf("unexpected error text: %q", resultText(res))
	}
}

func TestRunCommandRejectedByPolicy(t *testing.T) {
	runner := &fakeRunner{}
	e, err := NewExecutor(ExecutorConfig{Runner: runner})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	res := e.ExecuteTool(context.Background(), "run_command",
		map[string]interface{}{"command": "rm", "args": []interface{}{"-rf", "/"}}, testCaps())
	if !res.IsError {
		t.Fatal("rm must be rejected")
	}
	if runner.lastCommand != "" {
		t.Error("rejected command must never reach the runner")
	}
}

func TestRunCommandAllowed(t *testing.T) {
	runner := &fakeRunner{result: agentexec.Result{Stdout: "up 3 days", ExitCode: 0}}
	e, err := NewExecutor(ExecutorConfig{Runner: runner})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	res := e.ExecuteTool(context.Background(), "run_command",
		map[string]interface{}{"command": "uptime"}, testCaps())
	if res.IsError {
		t.Fatalf("expected success, got %q", resultText(res))
	}
	if runner.lastCommand != "uptime" {
		t.Errorf("runner got %q", runner.lastCommand)
	}
	if !strings.Contains(resultText(res), "up 3 days") {
		t.Errorf("stdout missing: %q", resultText(res))
	}
}

func TestContainerLogsLineCap(t *testing.T) {
	containers := &fakeContainers{logs: "line\n"}
	e, err := NewExecutor(ExecutorConfig{Containers: containers})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	caps := testCaps() // MaxLogLines: 50
	res := e.ExecuteTool(context.Background(), "get_container_logs",
		map[string]interface{}{"container": "web", "lines": float64(1000)}, caps)
	if res.IsError {
		t.Fatalf("expected success, got %q", resultText(res))
	}
	if containers.lastLines != 50 {
		t.Errorf("requested 1000 lines, provider saw %d, want 50", containers.lastLines)
	}
}

func TestNilProviderDisablesTool(t *testing.T) {
	e, err := NewExecutor(ExecutorConfig{})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	res := e.ExecuteTool(context.Background(), "get_containers", nil, testCaps())
	if !res.IsError {
		t.Fatal("missing provider should produce an error result")
	}
}
