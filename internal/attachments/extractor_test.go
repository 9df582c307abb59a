package attachments

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfischer/inboxpilot/internal/gmail"
)

// fakeFetcher serves attachment content from a map; ids mapped to nil error
// values are returned as fetch failures.
type fakeFetcher struct {
	content map[string][]byte
	fail    map[string]error
}

func (f *fakeFetcher) GetAttachment(messageID, attachmentID string) ([]byte, error) {
	if err, ok := f.fail[attachmentID]; ok {
		return nil, err
	}
	data, ok := f.content[attachmentID]
	if !ok {
		return nil, errors.New("unknown attachment")
	}
	return data, nil
}

func TestExtract(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "attachments")
	fetcher := &fakeFetcher{content: map[string][]byte{
		"att-1": []byte("pdf bytes"),
		"att-2": []byte("png bytes"),
	}}
	e := New(fetcher, dir, nil)

	results, err := e.Extract("msg-1", []gmail.AttachmentRef{
		{Filename: "report.pdf", AttachmentID: "att-1"},
		{Filename: "chart.png", AttachmentID: "att-2"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, filepath.Join(dir, "msg-1_report.pdf"), results[0].Path)
	assert.Equal(t, filepath.Join(dir, "msg-1_chart.png"), results[1].Path)

	data, err := os.ReadFile(results[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
}

func TestExtractPartialFailure(t *testing.T) {
	// Item 2 of 3 fails: items 1 and 3 are still saved.
	dir := t.TempDir()
	fetcher := &fakeFetcher{
		content: map[string][]byte{
			"att-1": []byte("one"),
			"att-3": []byte("three"),
		},
		fail: map[string]error{"att-2": errors.New("backend unavailable")},
	}
	e := New(fetcher, dir, nil)

	results, err := e.Extract("msg-1", []gmail.AttachmentRef{
		{Filename: "a.txt", AttachmentID: "att-1"},
		{Filename: "b.txt", AttachmentID: "att-2"},
		{Filename: "c.txt", AttachmentID: "att-3"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.FileExists(t, results[0].Path)

	require.Error(t, results[1].Err)
	var fetchErr *FetchError
	require.True(t, errors.As(results[1].Err, &fetchErr))
	assert.Equal(t, "msg-1", fetchErr.MessageID)
	assert.Equal(t, "b.txt", fetchErr.Filename)

	assert.NoError(t, results[2].Err)
	assert.FileExists(t, results[2].Path)
}

func TestExtractCollisionSafeNaming(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{content: map[string][]byte{
		"att-1": []byte("first"),
		"att-2": []byte("second"),
		"att-3": []byte("third"),
	}}
	e := New(fetcher, dir, nil)

	results, err := e.Extract("msg-1", []gmail.AttachmentRef{
		{Filename: "scan.pdf", AttachmentID: "att-1"},
		{Filename: "scan.pdf", AttachmentID: "att-2"},
		{Filename: "scan.pdf", AttachmentID: "att-3"},
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "msg-1_scan.pdf"), results[0].Path)
	assert.Equal(t, filepath.Join(dir, "msg-1_scan_1.pdf"), results[1].Path)
	assert.Equal(t, filepath.Join(dir, "msg-1_scan_2.pdf"), results[2].Path)

	// All three files exist with their own content.
	for i, want := range []string{"first", "second", "third"} {
		data, err := os.ReadFile(results[i].Path)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestExtractSanitizesFilenames(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{content: map[string][]byte{"att-1": []byte("x")}}
	e := New(fetcher, dir, nil)

	results, err := e.Extract("msg-1", []gmail.AttachmentRef{
		{Filename: "../../etc/passwd", AttachmentID: "att-1"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	// The saved file stays inside the destination directory.
	rel, err := filepath.Rel(dir, results[0].Path)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(rel))
	assert.NotContains(t, rel, "..")
}

func TestExtractCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper")
	fetcher := &fakeFetcher{content: map[string][]byte{"att-1": []byte("x")}}
	e := New(fetcher, dir, nil)

	_, err := e.Extract("msg-1", []gmail.AttachmentRef{
		{Filename: "f.txt", AttachmentID: "att-1"},
	})
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestExtractNoAttachments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "untouched")
	e := New(&fakeFetcher{}, dir, nil)

	results, err := e.Extract("msg-1", nil)
	require.NoError(t, err)
	assert.Nil(t, results)

	// No refs, no directory.
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}
