package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/opshawk/opshawk/internal/ai/safety"
	"github.com/opshawk/opshawk/internal/config"
)

func readFileTool() RegisteredTool {
	return RegisteredTool{
		Definition: Tool{
			Name:        "read_file",
			Description: "Read a text file from one of the allowed directories",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]PropertySchema{
					"path": {Type: "string", Description: "Absolute path of the file to read"},
				},
				Required: []string{"path"},
			},
		},
		Handler: handleReadFile,
	}
}

func handleReadFile(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error) {
	path := stringArg(args, "path", "")
	if path == "" {
		return NewErrorResultf("path is required"), nil
	}

	// Lexical check first, then the symlink-resolved one. Every later step
	// uses the resolved path so a symlink swap cannot change the target.
	if !safety.PathAllowed(path, caps.AllowedDirectories) {
		return NewErrorResult(safety.ErrPathNotAllowed), nil
	}
	resolved, err := safety.ValidateRealPath(path, caps.AllowedDirectories)
	if err != nil {
		return NewErrorResult(err), nil
	}

	if !safety.ExtensionAllowed(resolved) {
		return NewErrorResultf("file type not allowed: %s", resolved), nil
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return NewErrorResultf("cannot stat %s: %v", resolved, err), nil
	}
	if info.IsDir() {
		return NewErrorResultf("%s is a directory", resolved), nil
	}
	maxBytes := int64(caps.MaxFileSizeKB) * 1024
	if info.Size() > maxBytes {
		return NewErrorResultf("file %s is %d bytes, limit is %d", resolved, info.Size(), maxBytes), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return NewErrorResultf("cannot read %s: %v", resolved, err), nil
	}

	// The whole buffer is checked; a null byte anywhere rejects the read.
	if safety.LooksBinary(data) {
		return NewErrorResultf("%s looks like a binary file", resolved), nil
	}

	return NewTextResult(fmt.Sprintf("%s (%d bytes):\n%s", resolved, len(data), string(data))), nil
}
