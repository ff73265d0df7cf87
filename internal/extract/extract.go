// Package extract turns uploaded files into plain text for document
// injection and summarization.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedType is returned for file extensions outside the supported
// set. Handlers map it to a 400 response.
var ErrUnsupportedType = errors.New("unsupported file type")

var plainTextExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".log":  true,
}

// Supported reports whether a filename has an extension this package can
// extract text from.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return plainTextExtensions[ext] || ext == ".pdf"
}

// FromUpload extracts the text content of an uploaded file based on its
// extension. Plain-text formats are decoded as permissive UTF-8; PDFs are
// extracted page by page with pages joined by a blank line.
func FromUpload(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case plainTextExtensions[ext]:
		b, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read upload: %w", err)
		}
		return DecodeUTF8(b), nil
	case ext == ".pdf":
		return fromPDF(r)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}

// DecodeUTF8 decodes bytes as UTF-8, dropping invalid sequences rather than
// substituting a placeholder rune. Valid input passes through byte-for-byte.
func DecodeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			b = b[1:] // Drop the invalid byte
			continue
		}
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}

// fromPDF extracts text page by page, best effort: a page that fails to
// decode contributes an empty string instead of failing the whole file.
func fromPDF(r io.Reader) (text string, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	// The pdf package panics on some malformed files; treat that as an
	// unreadable document rather than crashing the request
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("failed to parse pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			pageText = ""
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n\n"), nil
}

// Truncate caps text at n characters. Used both for response previews and
// for bounding the text injected into history or fed to summarization.
func Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
