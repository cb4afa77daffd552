package webui

// mimeTypes maps a document kind (file extension without the dot) to the
// MIME type sent in the multipart upload. Kinds without an entry fall
// back to a generic binary type.
var mimeTypes = map[string]string{
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"md":   "text/markdown",
}

const defaultMIMEType = "application/octet-stream"

// mimeType resolves the MIME type for a document kind.
func mimeType(kind string) string {
	if m, ok := mimeTypes[kind]; ok {
		return m
	}
	return defaultMIMEType
}
