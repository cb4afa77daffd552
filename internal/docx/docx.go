// Package docx reads, builds and annotates Word (OOXML) documents.
//
// The package covers only what the review and generation tools need:
// enumerating paragraphs with their style and text, inserting comment
// annotations, and building a simple document from paragraph specs. It
// works on the raw archive with no external docx dependency: the parser
// records byte offsets into word/document.xml so annotation is a byte
// splice that leaves every untouched part of the document intact.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoDocumentPart indicates the archive has no word/document.xml.
var ErrNoDocumentPart = errors.New("docx: word/document.xml not found")

const documentPart = "word/document.xml"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// Paragraph is one non-empty paragraph of a document. Index is the
// paragraph's position in the filtered, zero-based sequence: paragraphs
// whose trimmed text is empty are skipped and do not consume a slot.
type Paragraph struct {
	Index int
	Style string
	Text  string

	runs     int
	runStart int64 // byte offset of the first run's start tag in document.xml
	runEnd   int64 // byte offset just past the first run's end tag
}

// Runs reports the number of inline runs in the paragraph.
func (p Paragraph) Runs() int { return p.runs }

// Document is a parsed Word document.
type Document struct {
	archive []byte
	docXML  []byte
	paras   []Paragraph
}

// Parse reads a Word document from its raw archive bytes and indexes
// its non-empty paragraphs in document order.
func Parse(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening document archive: %w", err)
	}

	docXML, err := readPart(zr, documentPart)
	if err != nil {
		return nil, err
	}

	paras, err := scanParagraphs(docXML)
	if err != nil {
		return nil, fmt.Errorf("scanning paragraphs: %w", err)
	}

	return &Document{archive: data, docXML: docXML, paras: paras}, nil
}

// Paragraphs returns the non-empty paragraphs in document order.
func (d *Document) Paragraphs() []Paragraph {
	out := make([]Paragraph, len(d.paras))
	copy(out, d.paras)
	return out
}

// paraState accumulates one paragraph while scanning.
type paraState struct {
	style      string
	text       strings.Builder
	runs       int
	runStart   int64
	runEnd     int64
	inFirstRun bool
	inText     bool
}

// scanParagraphs walks document.xml once, collecting the style, text,
// run count and first-run byte offsets of every paragraph, then keeps
// only those with non-blank text.
func scanParagraphs(docXML []byte) ([]Paragraph, error) {
	dec := xml.NewDecoder(bytes.NewReader(docXML))

	var paras []Paragraph
	var cur *paraState

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				cur = &paraState{}
			case "r":
				if cur != nil {
					cur.runs++
					if cur.runs == 1 {
						cur.runStart = offset
						cur.inFirstRun = true
					}
				}
			case "pStyle":
				if cur != nil {
					for _, attr := range t.Attr {
						if attr.Name.Local == "val" {
							cur.style = attr.Value
						}
					}
				}
			case "t":
				if cur != nil {
					cur.inText = true
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if cur != nil {
					if text := strings.TrimSpace(cur.text.String()); text != "" {
						paras = append(paras, Paragraph{
							Index:    len(paras),
							Style:    cur.style,
							Text:     text,
							runs:     cur.runs,
							runStart: cur.runStart,
							runEnd:   cur.runEnd,
						})
					}
					cur = nil
				}
			case "r":
				// Runs do not nest, so the first run-end after the first
				// run-start closes it.
				if cur != nil && cur.inFirstRun {
					cur.runEnd = dec.InputOffset()
					cur.inFirstRun = false
				}
			case "t":
				if cur != nil {
					cur.inText = false
				}
			}
		case xml.CharData:
			if cur != nil && cur.inText {
				cur.text.Write(t)
			}
		}
	}

	return paras, nil
}

// reopen rebuilds a zip reader over the original archive bytes.
func reopen(archive []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("reopening archive: %w", err)
	}
	return zr, nil
}

// readPart returns the raw bytes of a named archive entry.
func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", name, err)
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	if name == documentPart {
		return nil, ErrNoDocumentPart
	}
	return nil, fmt.Errorf("docx: part %s not found", name)
}

// rewriteArchive copies the original archive, substituting the parts in
// replace and appending the parts in add that do not already exist.
func rewriteArchive(original []byte, replace, add map[string][]byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(original), int64(len(original)))
	if err != nil {
		return nil, fmt.Errorf("reopening archive: %w", err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)

	seen := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		seen[f.Name] = true

		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.Name, err)
		}

		if content, ok := replace[f.Name]; ok {
			if _, err := w.Write(content); err != nil {
				return nil, fmt.Errorf("writing %s: %w", f.Name, err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("copying %s: %w", f.Name, err)
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("copying %s: %w", f.Name, err)
		}
	}

	for name, content := range add {
		if seen[name] {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("adding %s: %w", name, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("adding %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	return out.Bytes(), nil
}

// escape returns s with XML special characters escaped, usable in both
// element content and attribute values.
func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s)) // cannot fail on a bytes.Buffer
	return buf.String()
}
