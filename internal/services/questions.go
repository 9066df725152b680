package services

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxQuestions  = 50
	maxParagraphs = 20
)

// Lines that open like "1) ", "2. ", "a) ", or bullet markers start a new
// question chunk, as does any line ending in "?".
var questionLeadRe = regexp.MustCompile(`^(\d+[).]\s+|[a-zA-Z]\)\s+|-|\*)`)

var paragraphSplitRe = regexp.MustCompile(`\n\s*\n`)

// ExtractQuestions splits assignment text into per-question chunks. Lines
// accumulate into a buffer that flushes on blank lines and on question
// leads. When nothing looks like a question the text falls back to plain
// paragraph splitting.
func ExtractQuestions(text string) []string {
	var chunks []string
	var buf []string

	flush := func() {
		if len(buf) == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(buf, " "))
		if joined != "" {
			chunks = append(chunks, joined)
		}
		buf = buf[:0]
	}

	for _, raw := range strings.Split(text, "\n") {
		ln := strings.TrimSpace(raw)
		if ln == "" {
			flush()
			continue
		}
		if questionLeadRe.MatchString(ln) || strings.HasSuffix(ln, "?") {
			flush()
			buf = append(buf, ln)
			flush()
		} else {
			buf = append(buf, ln)
		}
	}
	flush()

	if len(chunks) == 0 {
		var paras []string
		for _, p := range paragraphSplitRe.Split(text, -1) {
			p = strings.TrimSpace(p)
			if p != "" {
				paras = append(paras, p)
			}
		}
		if len(paras) > maxParagraphs {
			paras = paras[:maxParagraphs]
		}
		return paras
	}
	if len(chunks) > maxQuestions {
		chunks = chunks[:maxQuestions]
	}
	return chunks
}

// JoinQuestions renders extracted questions as a numbered block for the
// questions prompt.
func JoinQuestions(qs []string) string {
	parts := make([]string, 0, len(qs))
	for i, q := range qs {
		parts = append(parts, fmt.Sprintf("Q%d. %s", i+1, q))
	}
	return strings.Join(parts, "\n\n")
}
