// Package extract turns uploaded files into plain text for chunking.
package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ai-platform-be/internal/pkg/apperror"
)

const (
	TypePDF  = "pdf"
	TypeDOCX = "docx"
	TypeTXT  = "txt"
	TypeMD   = "md"
	TypeCSV  = "csv"
	TypeXLSX = "xlsx"
	TypeJSON = "json"
	TypeHTML = "html"
)

var extensionTypes = map[string]string{
	"pdf":      TypePDF,
	"docx":     TypeDOCX,
	"doc":      TypeDOCX,
	"txt":      TypeTXT,
	"md":       TypeMD,
	"markdown": TypeMD,
	"csv":      TypeCSV,
	"xlsx":     TypeXLSX,
	"xls":      TypeXLSX,
	"json":     TypeJSON,
	"html":     TypeHTML,
	"htm":      TypeHTML,
}

var contentTypes = map[string]string{
	"application/pdf": TypePDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": TypeDOCX,
	"application/msword":       TypeDOCX,
	"text/plain":               TypeTXT,
	"text/markdown":            TypeMD,
	"text/csv":                 TypeCSV,
	"application/json":         TypeJSON,
	"text/html":                TypeHTML,
	"application/vnd.ms-excel": TypeXLSX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": TypeXLSX,
}

// DetectType resolves the file type from the extension, then the declared
// content type. Anything unrecognised is treated as plain text.
func DetectType(filename, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if t, ok := contentTypes[ct]; ok {
		return t
	}
	return TypeTXT
}

// File reads path and extracts its text according to fileType.
// Every failure is reported as apperror.ErrExtractionFailed.
func File(path, fileType string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperror.Wrap(apperror.ErrExtractionFailed, err, "read uploaded file")
	}
	return Bytes(data, fileType)
}

func Bytes(data []byte, fileType string) (string, error) {
	var (
		text string
		err  error
	)
	switch fileType {
	case TypePDF:
		text, err = extractPDF(data)
	case TypeDOCX:
		text, err = extractDOCX(data)
	case TypeCSV:
		text, err = extractCSV(data)
	case TypeJSON:
		text, err = extractJSON(data)
	case TypeHTML:
		text, err = extractHTML(data)
	case TypeXLSX:
		return "", apperror.Newf(apperror.ErrExtractionFailed, "unsupported file type: %s", fileType)
	default:
		text = extractPlain(data)
	}
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return "", err
		}
		return "", apperror.Wrap(apperror.ErrExtractionFailed, err, fmt.Sprintf("failed to extract text from %s", strings.ToUpper(fileType)))
	}
	return text, nil
}

// extractPlain decodes UTF-8, dropping invalid sequences.
func extractPlain(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

func extractCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader([]byte(extractPlain(data))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("csv: %w", err)
		}
		rows = append(rows, strings.Join(record, " | "))
	}
	return strings.Join(rows, "\n"), nil
}

// extractJSON re-indents the document with two spaces, keeping key order.
func extractJSON(data []byte) (string, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(data), "", "  "); err != nil {
		return "", fmt.Errorf("json: %w", err)
	}
	return out.String(), nil
}
