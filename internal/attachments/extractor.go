package attachments

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tfischer/inboxpilot/internal/gmail"
	"github.com/tfischer/inboxpilot/internal/logging"
)

// Fetcher resolves an attachment handle to its content. *gmail.Client
// satisfies it.
type Fetcher interface {
	GetAttachment(messageID, attachmentID string) ([]byte, error)
}

// FetchError reports a single attachment that could not be fetched or
// written. Siblings in the same batch are unaffected.
type FetchError struct {
	MessageID    string
	AttachmentID string
	Filename     string
	Err          error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch attachment %q (message %s): %v", e.Filename, e.MessageID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Result is the outcome for one attachment: either a saved path or an
// error, in the order the refs were given.
type Result struct {
	Filename string
	Path     string
	Err      error
}

// Extractor saves attachments below a destination directory.
type Extractor struct {
	fetcher Fetcher
	dir     string
	logger  *slog.Logger
}

// New creates an Extractor writing into dir, which is created on first use.
func New(fetcher Fetcher, dir string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{fetcher: fetcher, dir: dir, logger: logger}
}

// Extract fetches and saves every attachment of one message. The returned
// results are in ref order; a per-item failure is recorded in its Result
// (wrapped as *FetchError) and the remaining attachments are still
// processed. The returned error is non-nil only when the destination
// directory itself cannot be created.
func (e *Extractor) Extract(messageID string, refs []gmail.AttachmentRef) ([]Result, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attachments directory %s: %w", e.dir, err)
	}

	results := make([]Result, 0, len(refs))
	seen := make(map[string]int)

	for _, ref := range refs {
		name := e.targetName(messageID, ref.Filename, seen)
		res := Result{Filename: ref.Filename}

		data, err := e.fetcher.GetAttachment(messageID, ref.AttachmentID)
		if err != nil {
			res.Err = &FetchError{
				MessageID:    messageID,
				AttachmentID: ref.AttachmentID,
				Filename:     ref.Filename,
				Err:          err,
			}
			e.logger.Warn("attachment fetch failed",
				logging.MessageID(messageID),
				slog.String("filename", ref.Filename),
				logging.Err(res.Err),
			)
			results = append(results, res)
			continue
		}

		path := filepath.Join(e.dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			res.Err = &FetchError{
				MessageID:    messageID,
				AttachmentID: ref.AttachmentID,
				Filename:     ref.Filename,
				Err:          err,
			}
			e.logger.Warn("attachment write failed",
				logging.MessageID(messageID),
				slog.String("path", path),
				logging.Err(res.Err),
			)
			results = append(results, res)
			continue
		}

		res.Path = path
		e.logger.Debug("attachment saved",
			logging.MessageID(messageID),
			slog.String("path", path),
			slog.Int("bytes", len(data)),
		)
		results = append(results, res)
	}

	return results, nil
}

// targetName derives a collision-safe filename: <messageID>_<filename>,
// with a _N suffix before the extension when the same filename repeats
// within one message.
func (e *Extractor) targetName(messageID, filename string, seen map[string]int) string {
	base := messageID + "_" + gmail.SanitizeFilename(filename)
	n := seen[base]
	seen[base] = n + 1
	if n == 0 {
		return base
	}
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s_%d%s", base[:len(base)-len(ext)], n, ext)
}
