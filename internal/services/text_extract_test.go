package services

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextPlain(t *testing.T) {
	got, err := ExtractText("notes.txt", "text/plain", []byte("hello   world\nsecond  line\n"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "hello world\nsecond line" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestExtractTextHTML(t *testing.T) {
	html := "<html><body><h1>Title</h1><p>Some&nbsp;body text</p></body></html>"
	got, err := ExtractText("page.html", "text/html", []byte(html))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(got, "Title") || !strings.Contains(got, "Some body text") {
		t.Fatalf("html text not extracted: %q", got)
	}
	if strings.Contains(got, "<") {
		t.Fatalf("tags survived extraction: %q", got)
	}
}

func TestExtractTextDOCX(t *testing.T) {
	doc := `<?xml version="1.0"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body><w:p><w:r><w:t>First run</w:t></w:r><w:r><w:t>second run</w:t></w:r></w:p></w:body></w:document>`
	data := buildZip(t, map[string]string{
		"[Content_Types].xml": "<Types/>",
		"word/document.xml":   doc,
	})
	got, err := ExtractText("assignment.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", data)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(got, "First run") || !strings.Contains(got, "second run") {
		t.Fatalf("docx text not extracted: %q", got)
	}
}

func TestExtractTextPPTX(t *testing.T) {
	slide := `<?xml version="1.0"?>` +
		`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:cSld><a:t>Slide text here</a:t></p:cSld></p:sld>`
	data := buildZip(t, map[string]string{
		"ppt/presentation.xml":  "<p/>",
		"ppt/slides/slide1.xml": slide,
	})
	got, err := ExtractText("deck.pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation", data)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(got, "Slide text here") {
		t.Fatalf("pptx text not extracted: %q", got)
	}
}

func TestExtractTextMismatches(t *testing.T) {
	cases := []struct {
		name     string
		fileName string
		mime     string
		data     []byte
	}{
		{name: "claims_pdf_not_pdf", fileName: "fake.pdf", mime: "application/pdf", data: []byte{0x00, 0x01, 0x02, 0x03}},
		{name: "empty_file", fileName: "empty.txt", mime: "text/plain", data: nil},
		{name: "unknown_binary", fileName: "blob.bin", mime: "application/octet-stream", data: []byte{0x00, 0xFF, 0x00, 0xFF}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ExtractText(tc.fileName, tc.mime, tc.data); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestSniffHelpers(t *testing.T) {
	if !isPDF([]byte("%PDF-1.7 rest")) {
		t.Fatalf("isPDF should accept a pdf header")
	}
	if isPDF([]byte("PDF-")) {
		t.Fatalf("isPDF should reject a missing percent sign")
	}
	if !isZip([]byte{'P', 'K', 3, 4, 0}) {
		t.Fatalf("isZip should accept the local file header magic")
	}
	if !looksLikeHTML([]byte("  <!DOCTYPE html><html></html>")) {
		t.Fatalf("looksLikeHTML should accept a doctype")
	}
	if !isProbablyText([]byte("just ordinary text\nwith lines")) {
		t.Fatalf("isProbablyText should accept ascii text")
	}
	if isProbablyText([]byte{0x00, 'a', 'b'}) {
		t.Fatalf("isProbablyText should reject NUL bytes")
	}
	if got := firstBytesHex([]byte{0xDE, 0xAD}, 4); got != "dead" {
		t.Fatalf("firstBytesHex: got %q", got)
	}
}
