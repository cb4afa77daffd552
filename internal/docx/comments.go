package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Comment is a review remark targeting a paragraph by its position in
// the filtered non-empty sequence (see Paragraph.Index).
type Comment struct {
	Index int
	Text  string
}

const (
	commentsPart = "word/comments.xml"
	docRelsPart  = "word/_rels/document.xml.rels"
	typesPart    = "[Content_Types].xml"

	commentsContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
	commentsRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	commentsRelID       = "rIdGenfilesComments"

	wordprocessingmlNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// Annotate attaches each comment to the first run of its target
// paragraph, tagged with the given reviewer identity, and returns the
// resulting archive. Comments whose index is out of range, or whose
// target paragraph has no runs, are silently dropped. If nothing
// remains to apply, the document is returned unchanged.
//
// A document that already carries comments (a prior review round) keeps
// them: new entries are appended to the existing comments part with ids
// above the existing maximum.
func (d *Document) Annotate(comments []Comment, author, initials string) ([]byte, error) {
	var applicable []Comment
	for _, c := range comments {
		if c.Index < 0 || c.Index >= len(d.paras) {
			continue
		}
		if d.paras[c.Index].runs == 0 {
			continue
		}
		applicable = append(applicable, c)
	}

	if len(applicable) == 0 {
		out := make([]byte, len(d.archive))
		copy(out, d.archive)
		return out, nil
	}

	existing := d.existingComments()
	firstID := 0
	if existing != nil {
		maxID, err := maxCommentID(existing)
		if err != nil {
			return nil, err
		}
		firstID = maxID + 1
	}

	docXML := d.spliceCommentMarks(applicable, firstID)

	replace := map[string][]byte{
		documentPart: docXML,
	}
	add := map[string][]byte{}

	if existing != nil {
		merged, err := appendComments(existing, applicable, firstID, author, initials)
		if err != nil {
			return nil, err
		}
		replace[commentsPart] = merged
	} else {
		add[commentsPart] = buildCommentsPart(applicable, author, initials)
	}

	if rels, err := d.patchedRels(); err != nil {
		return nil, err
	} else if rels != nil {
		replace[docRelsPart] = rels
	} else {
		add[docRelsPart] = minimalDocRels()
	}

	types, err := d.patchedContentTypes()
	if err != nil {
		return nil, err
	}
	if types != nil {
		replace[typesPart] = types
	}

	return rewriteArchive(d.archive, replace, add)
}

// insertion is a pending byte splice into document.xml.
type insertion struct {
	offset int64
	text   string
}

// spliceCommentMarks inserts commentRangeStart before, and
// commentRangeEnd plus a commentReference run after, the first run of
// each target paragraph. Comment ids follow the order of the applicable
// comments, starting at firstID.
func (d *Document) spliceCommentMarks(applicable []Comment, firstID int) []byte {
	inserts := make([]insertion, 0, len(applicable)*2)
	for i, c := range applicable {
		id := firstID + i
		p := d.paras[c.Index]
		inserts = append(inserts,
			insertion{
				offset: p.runStart,
				text:   fmt.Sprintf(`<w:commentRangeStart w:id="%d"/>`, id),
			},
			insertion{
				offset: p.runEnd,
				text: fmt.Sprintf(`<w:commentRangeEnd w:id="%d"/><w:r><w:commentReference w:id="%d"/></w:r>`,
					id, id),
			},
		)
	}
	sort.SliceStable(inserts, func(i, j int) bool { return inserts[i].offset < inserts[j].offset })

	var buf bytes.Buffer
	var pos int64
	for _, ins := range inserts {
		buf.Write(d.docXML[pos:ins.offset])
		buf.WriteString(ins.text)
		pos = ins.offset
	}
	buf.Write(d.docXML[pos:])
	return buf.Bytes()
}

// buildCommentsPart renders a fresh word/comments.xml for the applied
// comments.
func buildCommentsPart(applicable []Comment, author, initials string) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	fmt.Fprintf(&buf, `<w:comments xmlns:w="%s">`, wordprocessingmlNS)
	buf.Write(commentEntries(applicable, 0, author, initials))
	buf.WriteString(`</w:comments>`)
	return buf.Bytes()
}

// commentEntries renders the w:comment elements for the applied
// comments, ids starting at firstID.
func commentEntries(applicable []Comment, firstID int, author, initials string) []byte {
	date := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	var buf bytes.Buffer
	for i, c := range applicable {
		fmt.Fprintf(&buf,
			`<w:comment w:id="%d" w:author="%s" w:initials="%s" w:date="%s">`+
				`<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p></w:comment>`,
			firstID+i, escape(author), escape(initials), date, escape(c.Text))
	}
	return buf.Bytes()
}

// appendComments merges new entries into an existing comments part.
func appendComments(existing []byte, applicable []Comment, firstID int, author, initials string) ([]byte, error) {
	entries := commentEntries(applicable, firstID, author, initials)
	merged := bytes.Replace(existing, []byte(`</w:comments>`), append(entries, []byte(`</w:comments>`)...), 1)
	if bytes.Equal(merged, existing) {
		return nil, fmt.Errorf("docx: malformed %s", commentsPart)
	}
	return merged, nil
}

// existingComments returns the current comments part, or nil when the
// archive has none.
func (d *Document) existingComments() []byte {
	zr, err := reopen(d.archive)
	if err != nil {
		return nil
	}
	part, err := readPart(zr, commentsPart)
	if err != nil {
		return nil
	}
	return part
}

// maxCommentID scans a comments part for the highest w:id in use.
func maxCommentID(part []byte) (int, error) {
	dec := xml.NewDecoder(bytes.NewReader(part))
	maxID := -1
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("docx: parsing %s: %w", commentsPart, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "comment" {
			continue
		}
		for _, attr := range se.Attr {
			if attr.Name.Local != "id" {
				continue
			}
			if id, err := strconv.Atoi(attr.Value); err == nil && id > maxID {
				maxID = id
			}
		}
	}
	return maxID, nil
}

// patchedRels returns document.xml.rels with the comments relationship
// appended, nil if the part does not exist in the archive, or the part
// unchanged if the relationship is already declared.
func (d *Document) patchedRels() ([]byte, error) {
	zr, err := reopen(d.archive)
	if err != nil {
		return nil, err
	}

	rels, err := readPart(zr, docRelsPart)
	if err != nil {
		// Missing part: the caller adds a fresh one instead.
		return nil, nil
	}

	if bytes.Contains(rels, []byte(commentsRelType)) {
		return rels, nil
	}

	rel := fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="comments.xml"/>`,
		commentsRelID, commentsRelType)
	patched := bytes.Replace(rels, []byte("</Relationships>"), []byte(rel+"</Relationships>"), 1)
	if bytes.Equal(patched, rels) {
		return nil, fmt.Errorf("docx: malformed %s", docRelsPart)
	}
	return patched, nil
}

// patchedContentTypes returns [Content_Types].xml with the comments
// override appended, or nil when it already declares the part.
func (d *Document) patchedContentTypes() ([]byte, error) {
	zr, err := reopen(d.archive)
	if err != nil {
		return nil, err
	}

	types, err := readPart(zr, typesPart)
	if err != nil {
		return nil, err
	}

	if bytes.Contains(types, []byte("/"+commentsPart)) {
		return nil, nil
	}

	override := fmt.Sprintf(`<Override PartName="/%s" ContentType="%s"/>`, commentsPart, commentsContentType)
	patched := bytes.Replace(types, []byte("</Types>"), []byte(override+"</Types>"), 1)
	if bytes.Equal(patched, types) {
		return nil, fmt.Errorf("docx: malformed %s", typesPart)
	}
	return patched, nil
}

// minimalDocRels is used when the source archive carries no
// document-level relationships part at all.
func minimalDocRels() []byte {
	var buf strings.Builder
	buf.WriteString(xmlHeader)
	buf.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	fmt.Fprintf(&buf, `<Relationship Id="%s" Type="%s" Target="comments.xml"/>`, commentsRelID, commentsRelType)
	buf.WriteString(`</Relationships>`)
	return []byte(buf.String())
}
