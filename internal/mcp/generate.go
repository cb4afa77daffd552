package mcp

import (
	"context"
	"fmt"

	"github.com/genfiles/genfiles/internal/builder"
	"github.com/genfiles/genfiles/internal/docx"
	"github.com/genfiles/genfiles/internal/knowledge"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GeneratePresentationInput defines the input schema for the
// generate_presentation tool.
type GeneratePresentationInput struct {
	Content      string `json:"content" jsonschema:"Content summary the presentation is generated from."`
	FileName     string `json:"file_name" jsonschema:"Name for the generated file, without extension."`
	UserID       string `json:"user_id" jsonschema:"User ID owning the knowledge collection the file is indexed into."`
	TemplateType string `json:"template_type,omitempty" jsonschema:"Presentation template: general / modern / standard / swift. Defaults to general."`
}

// GenerateHWPInput defines the input schema for the generate_hwp tool.
type GenerateHWPInput struct {
	Content      string `json:"content" jsonschema:"Body text of the HWP document, title included."`
	FileName     string `json:"file_name" jsonschema:"Name for the generated file, without extension."`
	UserID       string `json:"user_id" jsonschema:"User ID owning the knowledge collection the file is indexed into."`
	TemplateType string `json:"template_type,omitempty" jsonschema:"HWP template: default / v2. Defaults to default."`
}

// GenerateSpreadsheetInput defines the input schema for the
// generate_spreadsheet tool.
type GenerateSpreadsheetInput struct {
	Sheets   []builder.Sheet `json:"sheets" jsonschema:"Sheets of the workbook, each with a name and its cell rows."`
	FileName string          `json:"file_name" jsonschema:"Name for the generated file, without extension."`
	UserID   string          `json:"user_id" jsonschema:"User ID owning the knowledge collection the file is indexed into."`
}

// GenerateWordInput defines the input schema for the generate_word
// tool.
type GenerateWordInput struct {
	Paragraphs []docx.ParagraphSpec `json:"paragraphs" jsonschema:"Paragraphs of the document in order, each with text and an optional style."`
	FileName   string               `json:"file_name" jsonschema:"Name for the generated file, without extension."`
	UserID     string               `json:"user_id" jsonschema:"User ID owning the knowledge collection the file is indexed into."`
}

// GenerateMarkdownInput defines the input schema for the
// generate_markdown tool.
type GenerateMarkdownInput struct {
	Content  string `json:"content" jsonschema:"Full markdown text of the file."`
	FileName string `json:"file_name" jsonschema:"Name for the generated file, without extension."`
	UserID   string `json:"user_id" jsonschema:"User ID owning the knowledge collection the file is indexed into."`
}

// registerGenerationTools registers the five document-generation tools.
func (s *Server) registerGenerationTools() error {
	presentationSchema, err := jsonschema.For[GeneratePresentationInput](nil)
	if err != nil {
		return fmt.Errorf("schema for generate_presentation: %w", err)
	}
	presentationDesc, err := template("generate_presentation")
	if err != nil {
		return err
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_presentation",
		Description: presentationDesc,
		InputSchema: presentationSchema,
	}, s.GeneratePresentation)

	hwpSchema, err := jsonschema.For[GenerateHWPInput](nil)
	if err != nil {
		return fmt.Errorf("schema for generate_hwp: %w", err)
	}
	hwpDesc, err := template("generate_hwp")
	if err != nil {
		return err
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_hwp",
		Description: hwpDesc,
		InputSchema: hwpSchema,
	}, s.GenerateHWP)

	spreadsheetSchema, err := jsonschema.For[GenerateSpreadsheetInput](nil)
	if err != nil {
		return fmt.Errorf("schema for generate_spreadsheet: %w", err)
	}
	spreadsheetDesc, err := template("generate_spreadsheet")
	if err != nil {
		return err
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_spreadsheet",
		Description: spreadsheetDesc,
		InputSchema: spreadsheetSchema,
	}, s.GenerateSpreadsheet)

	wordSchema, err := jsonschema.For[GenerateWordInput](nil)
	if err != nil {
		return fmt.Errorf("schema for generate_word: %w", err)
	}
	wordDesc, err := template("generate_word")
	if err != nil {
		return err
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_word",
		Description: wordDesc,
		InputSchema: wordSchema,
	}, s.GenerateWord)

	markdownSchema, err := jsonschema.For[GenerateMarkdownInput](nil)
	if err != nil {
		return fmt.Errorf("schema for generate_markdown: %w", err)
	}
	markdownDesc, err := template("generate_markdown")
	if err != nil {
		return err
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_markdown",
		Description: markdownDesc,
		InputSchema: markdownSchema,
	}, s.GenerateMarkdown)

	return nil
}

// GeneratePresentation handles the generate_presentation tool call.
func (s *Server) GeneratePresentation(ctx context.Context, req *mcp.CallToolRequest, input GeneratePresentationInput) (*mcp.CallToolResult, any, error) {
	templateType := input.TemplateType
	if templateType == "" {
		templateType = "general"
	}

	data, err := s.presenton.Generate(ctx, input.Content, templateType)
	if err != nil {
		s.logger.Error("presentation generation failed", "request_id", requestIDFrom(ctx), "error", err)
		return errorResult(fmt.Sprintf("generating presentation: %v", err)), nil, nil
	}

	return s.publish(ctx, data, input.FileName, "pptx", input.UserID), nil, nil
}

// GenerateHWP handles the generate_hwp tool call.
func (s *Server) GenerateHWP(ctx context.Context, req *mcp.CallToolRequest, input GenerateHWPInput) (*mcp.CallToolResult, any, error) {
	templateType := input.TemplateType
	if templateType == "" {
		templateType = "default"
	}

	data, err := s.hwp.Generate(ctx, input.Content, input.FileName+".hwp", templateType)
	if err != nil {
		s.logger.Error("hwp generation failed", "request_id", requestIDFrom(ctx), "error", err)
		return errorResult(fmt.Sprintf("generating hwp document: %v", err)), nil, nil
	}

	return s.publish(ctx, data, input.FileName, "hwp", input.UserID), nil, nil
}

// GenerateSpreadsheet handles the generate_spreadsheet tool call.
func (s *Server) GenerateSpreadsheet(ctx context.Context, req *mcp.CallToolRequest, input GenerateSpreadsheetInput) (*mcp.CallToolResult, any, error) {
	data, err := builder.Spreadsheet(input.Sheets)
	if err != nil {
		return errorResult(fmt.Sprintf("building workbook: %v", err)), nil, nil
	}

	return s.publish(ctx, data, input.FileName, "xlsx", input.UserID), nil, nil
}

// GenerateWord handles the generate_word tool call.
func (s *Server) GenerateWord(ctx context.Context, req *mcp.CallToolRequest, input GenerateWordInput) (*mcp.CallToolResult, any, error) {
	data, err := builder.WordDocument(input.Paragraphs)
	if err != nil {
		return errorResult(fmt.Sprintf("building document: %v", err)), nil, nil
	}

	return s.publish(ctx, data, input.FileName, "docx", input.UserID), nil, nil
}

// GenerateMarkdown handles the generate_markdown tool call.
func (s *Server) GenerateMarkdown(ctx context.Context, req *mcp.CallToolRequest, input GenerateMarkdownInput) (*mcp.CallToolResult, any, error) {
	data, err := builder.Markdown(input.Content)
	if err != nil {
		return errorResult(fmt.Sprintf("building markdown: %v", err)), nil, nil
	}

	return s.publish(ctx, data, input.FileName, "md", input.UserID), nil, nil
}

// publish uploads freshly generated bytes and indexes the file into the
// caller's default knowledge collection. Upload failures become error
// payloads; indexing failures are logged only.
func (s *Server) publish(ctx context.Context, data []byte, fileName, kind, userID string) *mcp.CallToolResult {
	token := tokenFrom(ctx)

	ref, err := s.transfer.Upload(ctx, token, data, fileName, kind)
	if err != nil {
		s.logger.Error("upload failed",
			"request_id", requestIDFrom(ctx), "filename", fileName, "kind", kind, "error", err)
		return errorResult(fmt.Sprintf("uploading %s.%s: %v", fileName, kind, err))
	}

	s.index(ctx, token, ref.ID, userID, knowledge.DefaultCollection)

	return jsonResult(downloadResult{DownloadLink: ref.DownloadLink})
}
