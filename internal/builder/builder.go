// Package builder turns declarative document specs into byte buffers.
//
// The tools accept structured content (sheets, paragraphs, markdown
// text) rather than arbitrary caller-supplied code; each builder here
// renders one document kind into an in-memory buffer ready for upload.
package builder

import (
	"errors"
	"fmt"

	"github.com/genfiles/genfiles/internal/docx"
	"github.com/xuri/excelize/v2"
)

// ErrEmptySpec indicates the caller supplied nothing to render.
var ErrEmptySpec = errors.New("builder: empty document spec")

// Sheet describes one worksheet of a spreadsheet: a name and a grid of
// cell values in row-major order.
type Sheet struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// Spreadsheet renders the sheets into an xlsx workbook.
func Spreadsheet(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, ErrEmptySpec
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}

		if i == 0 {
			// Rename the workbook's default sheet instead of adding one.
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("naming sheet %q: %w", name, err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("adding sheet %q: %w", name, err)
			}
		}

		for r, row := range sheet.Rows {
			for c, value := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, fmt.Errorf("cell (%d,%d) in sheet %q: %w", r, c, name, err)
				}
				if err := f.SetCellValue(name, cell, value); err != nil {
					return nil, fmt.Errorf("setting %s in sheet %q: %w", cell, name, err)
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serializing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WordDocument renders paragraph specs into a docx document.
func WordDocument(paras []docx.ParagraphSpec) ([]byte, error) {
	if len(paras) == 0 {
		return nil, ErrEmptySpec
	}
	return docx.Build(paras)
}

// Markdown renders markdown content into a byte buffer, ensuring the
// file ends with a newline.
func Markdown(content string) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptySpec
	}
	if content[len(content)-1] != '\n' {
		content += "\n"
	}
	return []byte(content), nil
}
