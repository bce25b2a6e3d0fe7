// Package textextract turns binary documents into plain text for heuristic parsing.
package textextract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// Supported binary formats.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
)

// ErrUnsupported is returned for formats this package cannot read.
var ErrUnsupported = errors.New("unsupported binary format")

// Extractor converts a binary document into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, format string, data []byte) (string, error)
}

// Default extracts PDF and DOCX text.
type Default struct{}

// ExtractText implements Extractor.
func (Default) ExtractText(ctx context.Context, format string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch format {
	case FormatPDF:
		return extractPDF(data)
	case FormatDOCX:
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
}

func extractPDF(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	for _, f := range archive.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()
		return documentText(rc)
	}
	return "", errors.New("docx has no word/document.xml")
}

// documentText walks WordprocessingML, keeping run text and turning paragraphs,
// breaks and tabs into whitespace.
func documentText(r io.Reader) (string, error) {
	var sb strings.Builder
	decoder := xml.NewDecoder(r)
	inText := false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// PrintableRuns recovers readable text from undecodable bytes: runs of at
// least minRun printable characters, one per line.
func PrintableRuns(data []byte, minRun int) string {
	var sb, run strings.Builder
	flush := func() {
		if run.Len() >= minRun {
			sb.WriteString(strings.TrimSpace(run.String()))
			sb.WriteByte('\n')
		}
		run.Reset()
	}

	for _, r := range string(data) {
		if r != unicode.ReplacementChar && (unicode.IsPrint(r) || r == '\t') {
			run.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return sb.String()
}
