package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ExtractText sniffs the true file type from bytes, then extracts text.
// Supported: PDF, DOCX, PPTX, TXT/MD/CSV, HTML (strip tags). Classroom
// uploads routinely lie about their mime type, so magic bytes win over the
// declared mime or extension.
func ExtractText(originalName string, mimeType string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	mt := strings.ToLower(strings.TrimSpace(mimeType))

	if len(data) == 0 {
		return "", fmt.Errorf("empty file: name=%s mime=%s", originalName, mimeType)
	}

	if isPDF(data) {
		return extractPDF(data)
	}
	if isZip(data) {
		kind, err := detectOpenXMLKind(data)
		if err != nil {
			return "", fmt.Errorf("zip/openxml detect failed: %w", err)
		}
		switch kind {
		case "docx":
			return extractDOCX(data)
		case "pptx":
			return extractPPTX(data)
		default:
			return "", fmt.Errorf("unsupported zip/openxml kind=%s name=%s mime=%s", kind, originalName, mimeType)
		}
	}

	if looksLikeHTML(data) || mt == "text/html" || ext == ".html" || ext == ".htm" {
		return extractHTML(string(data)), nil
	}

	if isProbablyText(data) || strings.HasPrefix(mt, "text/") || ext == ".txt" || ext == ".md" || ext == ".markdown" || ext == ".csv" {
		return collapseLines(string(data)), nil
	}

	if mt == "application/pdf" || ext == ".pdf" {
		head := firstBytesHex(data, 16)
		return "", fmt.Errorf("file claims pdf but missing %%PDF header. name=%s mime=%s head=%s", originalName, mimeType, head)
	}
	if mt == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" || ext == ".docx" {
		return "", fmt.Errorf("file claims docx but is not a valid zip container: name=%s mime=%s", originalName, mimeType)
	}
	if mt == "application/vnd.openxmlformats-officedocument.presentationml.presentation" || ext == ".pptx" {
		return "", fmt.Errorf("file claims pptx but is not a valid zip container: name=%s mime=%s", originalName, mimeType)
	}

	return "", fmt.Errorf("unsupported file type: name=%s ext=%s mime=%s head=%s", originalName, ext, mimeType, firstBytesHex(data, 16))
}

// ------------------------
// Sniff helpers
// ------------------------

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

func looksLikeHTML(b []byte) bool {
	s := strings.ToLower(string(b[:minInt(len(b), 2048)]))
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		return true
	}
	return strings.Contains(s, "<html") && strings.Contains(s, "</html>")
}

func isProbablyText(b []byte) bool {
	sample := b[:minInt(len(b), 4096)]
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

func firstBytesHex(b []byte, n int) string {
	n = minInt(len(b), n)
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, hexdigits[b[i]>>4], hexdigits[b[i]&0x0f])
	}
	return string(out)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ------------------------
// Extractors
// ------------------------

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return collapseLines(string(b)), nil
}

func detectOpenXMLKind(zipBytes []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", err
	}
	hasWord := false
	hasPpt := false
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "word/") {
			hasWord = true
		}
		if strings.HasPrefix(f.Name, "ppt/") {
			hasPpt = true
		}
	}
	switch {
	case hasWord && !hasPpt:
		return "docx", nil
	case hasPpt && !hasWord:
		return "pptx", nil
	default:
		return "unknown", fmt.Errorf("zip does not look like docx or pptx")
	}
}

func extractDOCX(zipBytes []byte) (string, error) {
	// DOCX keeps body text under word/document.xml in <w:t> runs.
	return extractOpenXMLText(zipBytes, []string{"word/document.xml"}, "t")
}

func extractPPTX(zipBytes []byte) (string, error) {
	// PPTX scatters text across ppt/slides/*.xml in <a:t> runs.
	return extractOpenXMLTextByPrefix(zipBytes, "ppt/slides/", ".xml", "t")
}

func extractOpenXMLText(zipBytes []byte, files []string, tagLocal string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, target := range files {
		f := findZipFile(zr, target)
		if f == nil {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		b, _ := io.ReadAll(rc)
		_ = rc.Close()
		out.WriteString(extractTextFromXML(b, tagLocal))
		out.WriteString("\n")
	}
	s := collapseLines(out.String())
	if s == "" {
		return "", fmt.Errorf("no text extracted from openxml")
	}
	return s, nil
}

func extractOpenXMLTextByPrefix(zipBytes []byte, prefix, suffix, tagLocal string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) && strings.HasSuffix(f.Name, suffix) {
			rc, err := f.Open()
			if err != nil {
				return "", err
			}
			b, _ := io.ReadAll(rc)
			_ = rc.Close()
			out.WriteString(extractTextFromXML(b, tagLocal))
			out.WriteString("\n")
		}
	}
	s := collapseLines(out.String())
	if s == "" {
		return "", fmt.Errorf("no text extracted from openxml prefix %s", prefix)
	}
	return s, nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func extractTextFromXML(xmlBytes []byte, tagLocal string) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != tagLocal {
			continue
		}
		var v string
		_ = dec.DecodeElement(&v, &se)
		if v != "" {
			out.WriteString(v)
			out.WriteString(" ")
		}
	}
	return out.String()
}

var htmlTagRe = regexp.MustCompile(`(?s)<[^>]*>`)

func extractHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return collapseLines(s)
}

// collapseLines squeezes runs of spaces within each line but keeps the line
// structure, which the question splitter depends on.
func collapseLines(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.Join(strings.Fields(ln), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
