package webui

import "fmt"

// FileReference identifies a successfully uploaded file.
type FileReference struct {
	// ID is the canonical handle used for all later operations
	// (knowledge attach, download-for-review).
	ID string `json:"id"`

	// DownloadLink is a human-presentable markdown hyperlink of the form
	// "[Download {name}.{ext}](/api/v1/files/{id}/content)".
	DownloadLink string `json:"file_path_download"`
}

// Failure captures a non-success HTTP response from the file-storage
// service. It is returned as an error value; callers inspect it with
// errors.As when they need the status code or raw body.
type Failure struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Body == "" {
		return fmt.Sprintf("webui: unexpected status %d", f.StatusCode)
	}
	return fmt.Sprintf("webui: unexpected status %d: %s", f.StatusCode, f.Body)
}
