package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"dreamdoc-backend/internal/shared/storage/object"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// A first line longer than this is prose, not a title.
	maxTitleLen = 100
)

// Extraction is the outcome of pulling text out of an uploaded document.
type Extraction struct {
	Text      string
	CharCount int
	Title     string
	Metadata  map[string]string
}

// Supported reports whether the extractor can handle the mime type,
// after container and extension normalization.
func Supported(mimeType string, fileName string) bool {
	normalized := normalizeMimeType(mimeType, fileName, nil)
	return normalized == mimePDF || normalized == mimeDOCX
}

// FromStore reads the stored object, extracts its text, and persists a
// derived .extracted.txt copy next to the original.
func FromStore(ctx context.Context, store object.ObjectStore, storageKey string, mimeType string, fileName string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}

	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return Extraction{}, fmt.Errorf("extract key=%s mime=%s: %w", storageKey, mimeType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return Extraction{}, fmt.Errorf("extract key=%s mime=%s: read: %w", storageKey, mimeType, err)
	}

	out, err := FromBytes(ctx, raw, mimeType, fileName)
	if err != nil {
		return Extraction{}, fmt.Errorf("extract key=%s mime=%s: %w", storageKey, mimeType, err)
	}

	extractedKey := storageKey + ".extracted.txt"
	reader := strings.NewReader(out.Text)
	if _, err := store.Save(ctx, extractedKey, "text/plain; charset=utf-8", reader); err != nil {
		return Extraction{}, fmt.Errorf("extract key=%s mime=%s: %w", storageKey, mimeType, err)
	}

	return out, nil
}

// FromBytes extracts text from an in-memory payload.
func FromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	normalized := normalizeMimeType(mimeType, fileName, data)

	var text string
	var meta map[string]string
	var err error
	switch normalized {
	case mimePDF:
		text, meta, err = extractPDF(data)
	case mimeDOCX:
		text, meta, err = extractDOCX(data)
	default:
		return Extraction{}, fmt.Errorf("unsupported mime type: %s", normalized)
	}
	if err != nil {
		return Extraction{}, err
	}

	return Extraction{
		Text:      text,
		CharCount: utf8.RuneCountInString(text),
		Title:     deriveTitle(text, fileName),
		Metadata:  meta,
	}, nil
}

// deriveTitle uses the first non-empty line of the text when it is short
// enough to be a title, otherwise falls back to the file name stem with
// underscores spaced out and each word capitalized.
func deriveTitle(text string, fileName string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) <= maxTitleLen {
			return line
		}
		break
	}
	stem := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.ReplaceAll(stem, "-", " ")
	words := strings.Fields(stem)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func extractPDF(data []byte) (string, map[string]string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", nil, err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", nil, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", nil, err
	}
	meta := map[string]string{"pages": strconv.Itoa(pdfReader.NumPage())}
	return buf.String(), meta, nil
}

func extractDOCX(data []byte) (string, map[string]string, error) {
	if len(data) == 0 {
		return "", nil, errors.New("empty docx data")
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return "", nil, err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", nil, errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", nil, err
	}

	text := stripDocxXML(string(raw))
	paragraphs := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			paragraphs++
		}
	}
	meta := map[string]string{"paragraphs": strconv.Itoa(paragraphs)}
	return text, meta, nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if last := buf.Len(); last > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != "application/zip" && clean != "application/octet-stream" {
		return clean
	}

	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDOCX
	default:
		return clean
	}
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			return mimeDOCX
		}
	}
	return ""
}
