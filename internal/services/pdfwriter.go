package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// CleanASCII maps common unicode punctuation and symbols to ASCII
// equivalents and drops whatever remains outside the printable range.
// Helvetica in the generated PDFs only covers basic latin, so everything
// that ends up on a page goes through here first.
func CleanASCII(text string) string {
	if text == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		// quotes
		"“", `"`, "”", `"`, "‘", "'", "’", "'",
		// dashes
		"–", "-", "—", "-", "―", "-",
		// arrows and symbols
		"→", "->", "←", "<-", "↑", "^", "↓", "v",
		"✓", "[CHECK]", "✗", "[X]", "★", "*", "☆", "*",
		// math
		"×", "x", "÷", "/", "≤", "<=", "≥", ">=", "≠", "!=",
		"∑", "SUM", "∏", "PRODUCT", "∆", "DELTA", "∞", "INFINITY",
		// bullets
		"•", "* ", "◦", "- ", "▪", "- ", "▫", "- ",
		// other
		"©", "(C)", "®", "(R)", "™", "(TM)", "°", "deg",
	)
	cleaned := replacer.Replace(text)

	var out strings.Builder
	out.Grow(len(cleaned))
	for _, r := range cleaned {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 0x20 && r < 0x7F) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

const (
	pdfMargin    = 40.0
	pdfBodySize  = 11.0
	pdfTitleSize = 14.0
	pdfWrapWidth = 95
	pdfLineH     = 14.0
)

// WriteTextPDF renders plain text onto letter pages: 40pt margins,
// Helvetica 11 body, a bold 14pt title line, lines wrapped at 95 chars,
// page break when the cursor reaches the bottom margin.
func WriteTextPDF(title, text string) ([]byte, error) {
	doc := gofpdf.New("P", "pt", "Letter", "")
	doc.SetMargins(pdfMargin, 50, pdfMargin)
	doc.SetAutoPageBreak(true, 60)
	doc.AddPage()

	if title = CleanASCII(strings.TrimSpace(title)); title != "" {
		doc.SetFont("Helvetica", "B", pdfTitleSize)
		doc.MultiCell(0, pdfLineH+3, title, "", "L", false)
		doc.Ln(pdfLineH)
	}

	doc.SetFont("Helvetica", "", pdfBodySize)
	for _, paragraph := range strings.Split(CleanASCII(text), "\n") {
		if strings.TrimSpace(paragraph) == "" {
			doc.Ln(pdfLineH)
			continue
		}
		for _, ln := range wrapLine(paragraph, pdfWrapWidth) {
			doc.CellFormat(0, pdfLineH, ln, "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// wrapLine breaks a line on word boundaries at the given width. Words
// longer than the width go out on their own line rather than being split.
func wrapLine(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		if len(cur)+1+len(w) <= width {
			cur += " " + w
		} else {
			lines = append(lines, cur)
			cur = w
		}
	}
	lines = append(lines, cur)
	return lines
}
