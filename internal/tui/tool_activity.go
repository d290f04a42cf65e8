package tui

import (
	"bytes"
	"encoding/json"
	"time"

	"tether/pkg/protocol"
)

// ToolActivityInfo represents the state of a tool execution
type ToolActivityInfo struct {
	ID       string
	Name     string
	Status   string // "running", "complete", "error"
	Args     string
	Result   string
	Error    string
	Duration time.Duration
}

func toolStarted(p protocol.ToolCallStartPayload) ToolActivityInfo {
	info := ToolActivityInfo{ID: p.ToolCallID, Name: p.Name, Status: "running"}
	if len(p.Arguments) > 0 {
		var compact bytes.Buffer
		if err := json.Compact(&compact, p.Arguments); err == nil {
			info.Args = compact.String()
		}
	}
	return info
}

func toolFinished(p protocol.ToolCallResultPayload) ToolActivityInfo {
	info := ToolActivityInfo{
		ID:       p.ToolCallID,
		Name:     p.Name,
		Status:   "complete",
		Result:   p.Result,
		Duration: time.Duration(p.DurationMs) * time.Millisecond,
	}
	if p.IsError {
		info.Status = "error"
		info.Error = p.Result
		info.Result = ""
	}
	return info
}

// updateToolList replaces the entry with the same call ID or appends a new
// one, keeping the last 10.
func updateToolList(tools []ToolActivityInfo, info ToolActivityInfo) []ToolActivityInfo {
	for i, t := range tools {
		sameCall := info.ID != "" && t.ID == info.ID
		sameRun := info.ID == "" && t.Name == info.Name && t.Status == "running"
		if sameCall || sameRun {
			if info.Name == "" {
				info.Name = t.Name
			}
			if info.Args == "" {
				info.Args = t.Args
			}
			tools[i] = info
			return tools
		}
	}
	if info.Name == "" {
		info.Name = "tool"
	}
	tools = append(tools, info)
	if len(tools) > 10 {
		tools = tools[len(tools)-10:]
	}
	return tools
}
