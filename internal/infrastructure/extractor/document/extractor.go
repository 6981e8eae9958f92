// Package document extracts plain text from stored resume files.
package document

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

const maxSourceBytes = 20 << 20

type format int

const (
	formatText format = iota
	formatPDF
	formatDocx
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, resume *domain.Resume) (string, error) {
	reader, err := e.storage.Open(ctx, resume.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source resume: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, maxSourceBytes+1))
	if err != nil {
		return "", fmt.Errorf("read source resume: %w", err)
	}
	if len(raw) > maxSourceBytes {
		return "", domain.WrapError(domain.ErrValidation, "extract text", fmt.Errorf("%s exceeds %d bytes", resume.Filename, maxSourceBytes))
	}

	switch detectFormat(resume.Filename, resume.MimeType, raw) {
	case formatPDF:
		return extractPDF(raw)
	case formatDocx:
		return extractDocx(raw)
	default:
		if !utf8.Valid(raw) {
			return "", domain.WrapError(domain.ErrValidation, "extract text", fmt.Errorf("unsupported binary format: %s", resume.Filename))
		}
		return normalizeWhitespace(string(raw)), nil
	}
}

func detectFormat(filename, mime string, raw []byte) format {
	ext := strings.ToLower(filepath.Ext(filename))
	mime = strings.ToLower(mime)
	switch {
	case ext == ".pdf" || mime == "application/pdf" || bytes.HasPrefix(raw, []byte("%PDF-")):
		return formatPDF
	case ext == ".docx" || strings.Contains(mime, "wordprocessingml"):
		return formatDocx
	default:
		return formatText
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrValidation, "extract pdf", err)
	}
	rs, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rs); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}
	return normalizeWhitespace(buf.String()), nil
}

var (
	xmlTags       = regexp.MustCompile(`<[^>]+>`)
	inlineSpaces  = regexp.MustCompile(`[ \t\r\f\v]+`)
	repeatedLines = regexp.MustCompile(`\n\s*\n+`)
)

func extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrValidation, "extract docx", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		docXML, err := io.ReadAll(io.LimitReader(rc, maxSourceBytes))
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml: %w", err)
		}
		text := string(docXML)
		text = strings.ReplaceAll(text, "</w:p>", "\n")
		text = strings.ReplaceAll(text, "<w:tab/>", "\t")
		text = xmlTags.ReplaceAllString(text, "")
		return normalizeWhitespace(unescapeXML(text)), nil
	}
	return "", domain.WrapError(domain.ErrValidation, "extract docx", errors.New("no word/document.xml in archive"))
}

var xmlEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = inlineSpaces.ReplaceAllString(s, " ")
	s = repeatedLines.ReplaceAllString(s, "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
