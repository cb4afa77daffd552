// Package review applies structured review comments to previously
// uploaded Word documents and reports document structure.
//
// Both operations share the same paragraph enumeration: a zero-based
// index over the paragraphs whose trimmed text is non-empty, so review
// comment indices always refer to visible content.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/genfiles/genfiles/internal/docx"
	"github.com/genfiles/genfiles/internal/knowledge"
	"github.com/genfiles/genfiles/internal/webui"
)

const (
	// ReviewedCollection is the knowledge collection reviewed documents
	// are indexed into, distinct from the default generation collection.
	ReviewedCollection = "Documents Reviewed by AI"

	reviewerAuthor   = "AI Reviewer"
	reviewerInitials = "AI"

	reviewedSuffix = "_reviewed"
)

// Comment is one review remark supplied by the caller. Index refers to
// the filtered non-empty paragraph sequence of the target document.
type Comment struct {
	Index int    `json:"index"`
	Text  string `json:"comment"`
}

// Element is one entry of a document-structure listing.
type Element struct {
	Index int    `json:"index"`
	Style string `json:"style"`
	Text  string `json:"text"`
}

// Structure is the full structure listing of a document.
type Structure struct {
	FileName string    `json:"file_name"`
	FileID   string    `json:"file_id"`
	Body     []Element `json:"body"`
}

// Annotator reviews uploaded documents: it downloads, annotates,
// re-uploads and re-indexes them.
type Annotator struct {
	transfer        *webui.Client
	reconciler      *knowledge.Reconciler
	enableKnowledge bool
	logger          *slog.Logger
}

// NewAnnotator creates an annotator over the given transfer client and
// reconciler. reconciler may be nil only when enableKnowledge is false.
func NewAnnotator(transfer *webui.Client, reconciler *knowledge.Reconciler, enableKnowledge bool, logger *slog.Logger) (*Annotator, error) {
	if transfer == nil {
		return nil, fmt.Errorf("review: transfer client is required")
	}
	if enableKnowledge && reconciler == nil {
		return nil, fmt.Errorf("review: reconciler is required when knowledge indexing is enabled")
	}
	if logger == nil {
		return nil, fmt.Errorf("review: logger is required")
	}

	return &Annotator{
		transfer:        transfer,
		reconciler:      reconciler,
		enableKnowledge: enableKnowledge,
		logger:          logger,
	}, nil
}

// Inspect downloads a document and lists its non-empty paragraphs with
// their index, style and text.
func (a *Annotator) Inspect(ctx context.Context, token, fileID, fileName string) (*Structure, error) {
	data, err := a.transfer.Download(ctx, token, fileID)
	if err != nil {
		return nil, err
	}

	doc, err := docx.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	structure := &Structure{
		FileName: fileName,
		FileID:   fileID,
		Body:     []Element{},
	}
	for _, p := range doc.Paragraphs() {
		structure.Body = append(structure.Body, Element{
			Index: p.Index,
			Style: p.Style,
			Text:  p.Text,
		})
	}
	return structure, nil
}

// Apply annotates the document with the given comments, uploads the
// result as "{stem}_reviewed.docx" and indexes it into the reviewed
// collection. Out-of-range and malformed comments are skipped, never
// reported as errors; a knowledge failure is logged and does not fail
// the operation.
func (a *Annotator) Apply(ctx context.Context, token, fileID, fileName, userID string, comments []Comment) (*webui.FileReference, error) {
	data, err := a.transfer.Download(ctx, token, fileID)
	if err != nil {
		return nil, err
	}

	doc, err := docx.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	marks := make([]docx.Comment, 0, len(comments))
	for _, c := range comments {
		if c.Text == "" {
			continue
		}
		marks = append(marks, docx.Comment{Index: c.Index, Text: c.Text})
	}

	annotated, err := doc.Annotate(marks, reviewerAuthor, reviewerInitials)
	if err != nil {
		return nil, fmt.Errorf("annotating document: %w", err)
	}

	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	ref, err := a.transfer.Upload(ctx, token, annotated, stem+reviewedSuffix, "docx")
	if err != nil {
		return nil, err
	}

	if a.enableKnowledge {
		if err := a.reconciler.EnsureAttached(ctx, token, ref.ID, userID, ReviewedCollection); err != nil {
			a.logger.Error("indexing reviewed document failed",
				"file_id", ref.ID, "user_id", userID, "error", err)
		}
	}

	return ref, nil
}
