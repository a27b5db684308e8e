// Package export converts a run's Markdown result into downloadable
// documents.
package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is an export target.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

// Formats lists every supported format.
var Formats = []Format{FormatMarkdown, FormatText, FormatHTML, FormatPDF, FormatDOCX}

// ParseFormat accepts a format name or file extension.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "."))
	switch f {
	case "markdown":
		return FormatMarkdown, nil
	case "text":
		return FormatText, nil
	case "htm":
		return FormatHTML, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", name)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// FileName replaces the extension of name with f's.
func (f Format) FileName(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || strings.HasSuffix(name, "/") {
		name += "result"
	}
	return name + "." + string(f)
}

// Export renders markdown in format f.
func Export(markdown string, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return []byte(markdown), nil
	case FormatText:
		return plainText(Blocks(markdown)), nil
	case FormatHTML:
		return HTML(markdown, "")
	case FormatPDF:
		return PDF(Blocks(markdown))
	case FormatDOCX:
		return DOCX(Blocks(markdown))
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}

func plainText(blocks []Block) []byte {
	var buf bytes.Buffer
	for _, b := range blocks {
		switch b.Kind {
		case BlockPageBreak:
			buf.WriteString("\f\n")
		case BlockBlank:
			buf.WriteString("\n")
		case BlockHeading:
			buf.WriteString(b.Text)
			buf.WriteString("\n")
		default:
			buf.WriteString(StripInline(b.Text))
			buf.WriteString("\n")
		}
	}
	return buf.Bytes()
}
