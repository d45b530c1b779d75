// Package docreader extracts plain resume text from files, choosing a
// reader by file extension.
package docreader

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"resumeseo/internal/errors"
	"resumeseo/internal/utils"
)

// Reader turns raw file content into plain text
type Reader interface {
	Read(data []byte) (string, error)
}

// ReaderFunc adapts a function to the Reader interface
type ReaderFunc func(data []byte) (string, error)

func (f ReaderFunc) Read(data []byte) (string, error) { return f(data) }

// Registry maps lowercase extensions, including the dot, to readers
type Registry struct {
	mu      sync.RWMutex
	readers map[string]Reader
}

// NewRegistry returns a registry with the text, PDF and DOCX readers
func NewRegistry() *Registry {
	r := &Registry{readers: make(map[string]Reader)}
	for _, ext := range []string{".txt", ".text", ".md", ".markdown"} {
		r.Register(ext, ReaderFunc(readText))
	}
	r.Register(".pdf", ReaderFunc(readPDF))
	r.Register(".docx", ReaderFunc(readDOCX))
	return r
}

// Default is the registry used by ReadFile
var Default = NewRegistry()

// Register adds or replaces the reader for ext
func (r *Registry) Register(ext string, reader Reader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readers[strings.ToLower(ext)] = reader
}

// Extensions lists the supported extensions, sorted
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.readers))
	for ext := range r.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Lookup returns the reader for filename's extension
func (r *Registry) Lookup(filename string) (Reader, error) {
	ext := utils.GetFileExtension(filename)

	r.mu.RLock()
	reader, ok := r.readers[ext]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.NewUnsupportedFormatError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported file format %q; supported formats: %s", ext, strings.Join(r.Extensions(), ", ")), nil).
			WithContext("filename", filename)
	}
	return reader, nil
}

// ReadFile validates, reads and converts filename to plain text
func (r *Registry) ReadFile(filename string, maxSize int64) (string, error) {
	reader, err := r.Lookup(filename)
	if err != nil {
		return "", err
	}

	if _, err := utils.ValidateInputFile(filename, maxSize); err != nil {
		return "", err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	text, err := reader.Read(data)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to extract text from %s", filename), err)
	}
	return text, nil
}

// ReadFile reads filename with the default registry
func ReadFile(filename string, maxSize int64) (string, error) {
	return Default.ReadFile(filename, maxSize)
}

func readText(data []byte) (string, error) {
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}

func readPDF(data []byte) (string, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func readDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty docx data")
	}

	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return stripDocumentXML(doc.Editable().GetContent())
}

// stripDocumentXML keeps character data, breaking lines at paragraph ends
func stripDocumentXML(raw string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				buf.WriteString("\n")
			}
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}
