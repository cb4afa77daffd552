package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// ParagraphSpec describes one paragraph of a document to build. An
// empty Text produces a blank paragraph with no runs; Style, when set,
// references a paragraph style id such as "Heading1" or "Title".
type ParagraphSpec struct {
	Style string `json:"style,omitempty"`
	Text  string `json:"text"`
}

// Build assembles a minimal Word document from paragraph specs.
func Build(paras []ParagraphSpec) ([]byte, error) {
	var out bytes.Buffer
	zw := zip.NewWriter(&out)

	parts := []struct {
		name    string
		content []byte
	}{
		{typesPart, buildContentTypes()},
		{"_rels/.rels", buildPackageRels()},
		{documentPart, buildDocumentPart(paras)},
		{docRelsPart, buildDocumentRels()},
		{"word/styles.xml", buildStylesPart()},
	}

	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", p.name, err)
		}
		if _, err := w.Write(p.content); err != nil {
			return nil, fmt.Errorf("writing %s: %w", p.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing document: %w", err)
	}
	return out.Bytes(), nil
}

func buildDocumentPart(paras []ParagraphSpec) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	fmt.Fprintf(&buf, `<w:document xmlns:w="%s"><w:body>`, wordprocessingmlNS)
	for _, p := range paras {
		buf.WriteString("<w:p>")
		if p.Style != "" {
			fmt.Fprintf(&buf, `<w:pPr><w:pStyle w:val="%s"/></w:pPr>`, escape(p.Style))
		}
		if p.Text != "" {
			fmt.Fprintf(&buf, `<w:r><w:t xml:space="preserve">%s</w:t></w:r>`, escape(p.Text))
		}
		buf.WriteString("</w:p>")
	}
	buf.WriteString(`</w:body></w:document>`)
	return buf.Bytes()
}

func buildContentTypes() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	buf.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	buf.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	buf.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	buf.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	buf.WriteString(`</Types>`)
	return buf.Bytes()
}

func buildPackageRels() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	buf.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>`)
	buf.WriteString(`</Relationships>`)
	return buf.Bytes()
}

func buildDocumentRels() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	buf.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`)
	buf.WriteString(`</Relationships>`)
	return buf.Bytes()
}

// buildStylesPart declares the paragraph styles the generation tools
// reference. Word resolves unknown style ids to Normal, so the set
// stays deliberately small.
func buildStylesPart() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	fmt.Fprintf(&buf, `<w:styles xmlns:w="%s">`, wordprocessingmlNS)
	for _, s := range []struct{ id, name string }{
		{"Normal", "Normal"},
		{"Title", "Title"},
		{"Heading1", "heading 1"},
		{"Heading2", "heading 2"},
	} {
		fmt.Fprintf(&buf,
			`<w:style w:type="paragraph" w:styleId="%s"><w:name w:val="%s"/></w:style>`,
			s.id, s.name)
	}
	buf.WriteString(`</w:styles>`)
	return buf.Bytes()
}
