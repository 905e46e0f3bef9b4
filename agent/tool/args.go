package tool

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/orbita/agent/contract"
)

// JSON decodes every number to float64, so integer arguments arrive as
// floats. These helpers normalize the map[string]any the model produced.

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func errResult(tool, format string, a ...any) contractx.ToolResult {
	return contractx.ToolResult{Tool: tool, Error: fmt.Sprintf(format, a...)}
}
