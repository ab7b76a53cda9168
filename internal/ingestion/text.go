// Package ingestion turns raw resumes, job descriptions and letters into clean text chunks.
package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	innerSpace  = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
	bulletGlyph = regexp.MustCompile(`^[•·▪◦]\s*`)
)

// CleanText normalizes line endings and whitespace while keeping paragraph structure,
// Markdown headings and bullet lists intact. At most one blank line separates paragraphs.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\x00", "")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}

	// Headings lose their indentation
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	indent := len(line) - len(strings.TrimLeft(line, " \t"))
	// Unicode bullets become Markdown bullets
	if bulletGlyph.MatchString(trimmed) {
		trimmed = "- " + bulletGlyph.ReplaceAllString(trimmed, "")
	}
	trimmed = innerSpace.ReplaceAllString(trimmed, " ")
	if indent > 0 {
		return strings.Repeat(" ", indent) + trimmed
	}
	return trimmed
}

// ContentHash is the SHA-256 hex digest of content
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ReadFile loads a document from disk. HTML files are reduced to their main text.
// The result is cleaned.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %w", err)
		}
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return Normalize(string(data))
}

// Normalize cleans raw document content, extracting the text first when it is HTML.
func Normalize(raw string) (string, error) {
	if LooksLikeHTML(raw) {
		text, err := ExtractMainText(raw)
		if err != nil {
			return "", err
		}
		raw = text
	}
	return CleanText(raw), nil
}
