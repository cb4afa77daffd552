package mcp

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// errorEnvelope is the failure payload every tool returns instead of a
// download link: {"error": {"message": "..."}}.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// errorResult builds the tool-level failure result. Failures are part
// of the tool payload, never protocol errors: the caller always gets a
// JSON object it can parse.
func errorResult(message string) *mcp.CallToolResult {
	var envelope errorEnvelope
	envelope.Error.Message = message

	b, err := json.MarshalIndent(envelope, "", "    ")
	if err != nil {
		// A struct of two strings cannot fail to marshal; keep a
		// plain-text fallback anyway.
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: message}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
		IsError: true,
	}
}

// jsonResult marshals data as the tool's success payload.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return errorResult("encoding result: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}
}

// downloadResult is the success payload of every generation tool.
type downloadResult struct {
	DownloadLink string `json:"file_path_download"`
}
