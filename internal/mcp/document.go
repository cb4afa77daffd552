package mcp

import (
	"context"
	"fmt"

	"github.com/genfiles/genfiles/internal/review"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// InspectDocumentInput defines the input schema for the
// inspect_document tool.
type InspectDocumentInput struct {
	FileID   string `json:"file_id" jsonschema:"ID of a previously uploaded docx file."`
	FileName string `json:"file_name" jsonschema:"Name of the original docx file."`
}

// ReviewDocumentInput defines the input schema for the review_document
// tool.
type ReviewDocumentInput struct {
	FileID         string           `json:"file_id" jsonschema:"ID of a previously uploaded docx file."`
	FileName       string           `json:"file_name" jsonschema:"Name of the original docx file."`
	ReviewComments []review.Comment `json:"review_comments" jsonschema:"Comments to attach, each with the paragraph index from inspect_document and the comment text."`
	UserID         string           `json:"user_id" jsonschema:"User ID owning the knowledge collection the reviewed copy is indexed into."`
}

// registerReviewTools registers the document inspection and review
// tools.
func (s *Server) registerReviewTools() error {
	inspectSchema, err := jsonschema.For[InspectDocumentInput](nil)
	if err != nil {
		return fmt.Errorf("schema for inspect_document: %w", err)
	}
	inspectDesc, err := template("inspect_document")
	if err != nil {
		return err
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "inspect_document",
		Description: inspectDesc,
		InputSchema: inspectSchema,
	}, s.InspectDocument)

	reviewSchema, err := jsonschema.For[ReviewDocumentInput](nil)
	if err != nil {
		return fmt.Errorf("schema for review_document: %w", err)
	}
	reviewDesc, err := template("review_document")
	if err != nil {
		return err
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "review_document",
		Description: reviewDesc,
		InputSchema: reviewSchema,
	}, s.ReviewDocument)

	return nil
}

// InspectDocument handles the inspect_document tool call.
func (s *Server) InspectDocument(ctx context.Context, req *mcp.CallToolRequest, input InspectDocumentInput) (*mcp.CallToolResult, any, error) {
	structure, err := s.annotator.Inspect(ctx, tokenFrom(ctx), input.FileID, input.FileName)
	if err != nil {
		s.logger.Error("document inspection failed",
			"request_id", requestIDFrom(ctx), "file_id", input.FileID, "error", err)
		return errorResult(fmt.Sprintf("inspecting document: %v", err)), nil, nil
	}

	return jsonResult(structure), nil, nil
}

// ReviewDocument handles the review_document tool call.
func (s *Server) ReviewDocument(ctx context.Context, req *mcp.CallToolRequest, input ReviewDocumentInput) (*mcp.CallToolResult, any, error) {
	ref, err := s.annotator.Apply(ctx, tokenFrom(ctx), input.FileID, input.FileName, input.UserID, input.ReviewComments)
	if err != nil {
		s.logger.Error("document review failed",
			"request_id", requestIDFrom(ctx), "file_id", input.FileID, "error", err)
		return errorResult(fmt.Sprintf("reviewing document: %v", err)), nil, nil
	}

	return jsonResult(downloadResult{DownloadLink: ref.DownloadLink}), nil, nil
}
