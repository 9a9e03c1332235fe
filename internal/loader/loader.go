// Package loader converts uploaded files into plain-text document segments.
// It dispatches on file extension to a format-specific extractor (PDF, DOCX,
// TXT, XLSX), skips unsupported formats, and drops blank extractions. A
// per-file extraction failure is logged and excluded from the result — it
// never aborts loading of the remaining files.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ronak8180/DocuMind/internal/logging"
	"github.com/ronak8180/DocuMind/internal/rag"
)

// extractor converts the raw bytes of one file into one or more text
// segments. Multi-segment results preserve the file's internal structure
// (one segment per PDF page or spreadsheet sheet).
type extractor func(data []byte) ([]string, error)

// extractors maps a lowercase file extension to its extractor.
var extractors = map[string]extractor{
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".txt":  extractTXT,
	".xlsx": extractXLSX,
}

// Supported reports whether the loader recognises the file's extension.
func Supported(path string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load reads each file, extracts its text, and returns one Document per
// non-blank extracted segment. Unsupported extensions are skipped with a
// debug log entry; unreadable or corrupt files are logged and skipped.
// The result may be empty — the caller decides whether that is an error.
func Load(ctx context.Context, paths []string) []rag.Document {
	log := logging.FromContext(ctx)

	var docs []rag.Document
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		extract, ok := extractors[ext]
		if !ok {
			log.Debug("loader: skipping unsupported file format",
				slog.String("path", path),
				slog.String("ext", ext),
			)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("loader: failed to read file",
				slog.String("path", path),
				slog.Any("error", err),
			)
			continue
		}

		segments, err := extract(data)
		if err != nil {
			log.Warn("loader: extraction failed",
				slog.String("path", path),
				slog.Any("error", err),
			)
			continue
		}

		source := filepath.Base(path)
		kept := 0
		for _, seg := range segments {
			if strings.TrimSpace(seg) == "" {
				continue
			}
			docs = append(docs, rag.Document{Text: seg, Source: source})
			kept++
		}
		if kept == 0 {
			log.Warn("loader: no text content found", slog.String("path", path))
		}
	}

	return docs
}

// extractTXT decodes a plain-text file as UTF-8. Invalid UTF-8 is an
// extraction failure rather than silently mangled content.
func extractTXT(data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file is not valid UTF-8")
	}
	return []string{string(data)}, nil
}
