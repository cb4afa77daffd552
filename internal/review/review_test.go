package review

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/genfiles/genfiles/internal/docx"
	"github.com/genfiles/genfiles/internal/knowledge"
	"github.com/genfiles/genfiles/internal/log"
	"github.com/genfiles/genfiles/internal/webui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform implements the file and knowledge endpoints the
// annotator touches.
type fakePlatform struct {
	mu           sync.Mutex
	files        map[string][]byte
	uploads      []string // filenames in upload order
	collections  []map[string]string
	attachments  map[string][]string
	knowledge503 bool
	nextID       int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		files:       make(map[string][]byte),
		attachments: make(map[string][]string),
	}
}

func (f *fakePlatform) putFile(data []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("file-%d", f.nextID)
	f.files[id] = data
	return id
}

func (f *fakePlatform) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/files/", func(w http.ResponseWriter, r *http.Request) {
		file, fh, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		f.mu.Lock()
		f.nextID++
		id := fmt.Sprintf("file-%d", f.nextID)
		f.files[id] = data
		f.uploads = append(f.uploads, fh.Filename)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	})
	mux.HandleFunc("GET /api/v1/files/{id}/content", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		data, ok := f.files[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	})
	mux.HandleFunc("GET /api/v1/knowledge/list", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.knowledge503 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if f.collections == nil {
			_, _ = w.Write([]byte("[]"))
			return
		}
		_ = json.NewEncoder(w).Encode(f.collections)
	})
	mux.HandleFunc("POST /api/v1/knowledge/create", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.nextID++
		id := fmt.Sprintf("kn-%d", f.nextID)
		f.collections = append(f.collections, map[string]string{
			"id": id, "name": req["name"], "user_id": "u1",
		})
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	})
	mux.HandleFunc("POST /api/v1/knowledge/{id}/file/add", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.attachments[r.PathValue("id")] = append(f.attachments[r.PathValue("id")], req["file_id"])
		f.mu.Unlock()
	})
	return mux
}

func newTestAnnotator(t *testing.T, f *fakePlatform, enableKnowledge bool) *Annotator {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	transfer, err := webui.NewClient(srv.URL, 5*time.Second, log.NewNop())
	require.NoError(t, err)
	reconciler, err := knowledge.NewReconciler(srv.URL, 5*time.Second, log.NewNop())
	require.NoError(t, err)

	a, err := NewAnnotator(transfer, reconciler, enableKnowledge, log.NewNop())
	require.NoError(t, err)
	return a
}

func readArchivePart(t *testing.T, archive []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	for _, file := range zr.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("part %s not found in archive", name)
	return ""
}

func buildTestDoc(t *testing.T) []byte {
	t.Helper()
	data, err := docx.Build([]docx.ParagraphSpec{
		{Text: ""},
		{Text: "Intro"},
		{Text: ""},
		{Text: "Body"},
		{Text: "More"},
	})
	require.NoError(t, err)
	return data
}

func TestInspect(t *testing.T) {
	f := newFakePlatform()
	fileID := f.putFile(buildTestDoc(t))
	a := newTestAnnotator(t, f, true)

	structure, err := a.Inspect(context.Background(), "Bearer tok", fileID, "draft.docx")
	require.NoError(t, err)

	assert.Equal(t, "draft.docx", structure.FileName)
	assert.Equal(t, fileID, structure.FileID)
	require.Len(t, structure.Body, 3)
	assert.Equal(t, Element{Index: 0, Text: "Intro"}, structure.Body[0])
	assert.Equal(t, Element{Index: 1, Text: "Body"}, structure.Body[1])
	assert.Equal(t, Element{Index: 2, Text: "More"}, structure.Body[2])
}

func TestInspectDownloadFailure(t *testing.T) {
	f := newFakePlatform()
	a := newTestAnnotator(t, f, true)

	_, err := a.Inspect(context.Background(), "", "missing", "draft.docx")
	var failure *webui.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, http.StatusNotFound, failure.StatusCode)
}

func TestApply(t *testing.T) {
	f := newFakePlatform()
	fileID := f.putFile(buildTestDoc(t))
	a := newTestAnnotator(t, f, true)

	ref, err := a.Apply(context.Background(), "Bearer tok", fileID, "draft.docx", "u1", []Comment{
		{Index: 0, Text: "expand the introduction"},
		{Index: 1, Text: "needs a citation"},
		{Index: 2, Text: "tighten"},
		{Index: 7, Text: "out of range, dropped"},
	})
	require.NoError(t, err)

	assert.Contains(t, ref.DownloadLink, "draft_reviewed.docx")
	require.Len(t, f.uploads, 1)
	assert.Equal(t, "draft_reviewed.docx", f.uploads[0])

	// The reviewed document carries the applied comments.
	reviewed := f.files[ref.ID]
	doc, err := docx.Parse(reviewed)
	require.NoError(t, err)
	assert.Len(t, doc.Paragraphs(), 3)

	comments := readArchivePart(t, reviewed, "word/comments.xml")
	assert.Contains(t, comments, "expand the introduction")
	assert.Contains(t, comments, "needs a citation")
	assert.Contains(t, comments, "tighten")
	assert.NotContains(t, comments, "out of range")

	// Indexed into the reviewed collection, not the default one.
	require.Len(t, f.collections, 1)
	assert.Equal(t, ReviewedCollection, f.collections[0]["name"])
	assert.Equal(t, []string{ref.ID}, f.attachments[f.collections[0]["id"]])
}

func TestApplyKnowledgeFailureIsNonFatal(t *testing.T) {
	f := newFakePlatform()
	fileID := f.putFile(buildTestDoc(t))
	f.knowledge503 = true
	a := newTestAnnotator(t, f, true)

	ref, err := a.Apply(context.Background(), "Bearer tok", fileID, "draft.docx", "u1", []Comment{
		{Index: 0, Text: "note"},
	})
	require.NoError(t, err, "a knowledge failure must not fail the review")
	assert.True(t, strings.Contains(ref.DownloadLink, "draft_reviewed.docx"))
}

func TestApplyKnowledgeDisabled(t *testing.T) {
	f := newFakePlatform()
	fileID := f.putFile(buildTestDoc(t))
	a := newTestAnnotator(t, f, false)

	_, err := a.Apply(context.Background(), "", fileID, "draft.docx", "u1", []Comment{
		{Index: 0, Text: "note"},
	})
	require.NoError(t, err)
	assert.Empty(t, f.collections, "knowledge indexing disabled: no collection should be created")
}

func TestApplySkipsEmptyCommentText(t *testing.T) {
	f := newFakePlatform()
	fileID := f.putFile(buildTestDoc(t))
	a := newTestAnnotator(t, f, false)

	ref, err := a.Apply(context.Background(), "", fileID, "draft.docx", "u1", []Comment{
		{Index: 0, Text: ""},
	})
	require.NoError(t, err)

	// No applicable comments: the reviewed copy equals the original.
	assert.Equal(t, buildTestDoc(t), f.files[ref.ID])
}
