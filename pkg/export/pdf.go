package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const pdfFont = "goregular"

var headingSizes = map[int]float64{1: 20, 2: 16, 3: 13}

// PDF lays blocks out on A4 pages. The Go fonts are embedded as UTF-8
// TrueType, so Latin, Greek and Cyrillic text is kept as written.
func PDF(blocks []Block) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(pdfFont, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(pdfFont, "B", gobold.TTF)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	for _, b := range blocks {
		switch b.Kind {
		case BlockHeading:
			size := headingSizes[b.Level]
			pdf.SetFont(pdfFont, "B", size)
			pdf.Ln(2)
			pdf.MultiCell(0, size*0.5, b.Text, "", "L", false)
			pdf.Ln(2)
		case BlockPageBreak:
			pdf.AddPage()
		case BlockBlank:
			pdf.Ln(4)
		default:
			pdf.SetFont(pdfFont, "", 12)
			pdf.MultiCell(0, 6, StripInline(b.Text), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
