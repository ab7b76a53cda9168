package ingestion

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelector matches page chrome that never belongs to a document body
const noiseSelector = "nav, footer, header, script, style, noscript, form, iframe, .ad, .ads, .advertisement, .sidebar, .cookie-banner, .popup"

// contentSelectors are tried in order; the first match is the document body
var contentSelectors = []string{
	".job-description",
	"#job-description",
	".posting-content",
	"[data-testid='job-description']",
	"main",
	"article",
	".content",
	"#content",
}

// blockElements get a line break after their text so paragraphs survive extraction
const blockElements = "p, div, li, h1, h2, h3, h4, h5, h6, br, tr, section"

// LooksLikeHTML reports whether content appears to be an HTML document or fragment
func LooksLikeHTML(content string) bool {
	head := strings.ToLower(strings.TrimSpace(content))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") ||
		strings.Contains(head, "<body") || strings.Contains(head, "<p>") || strings.Contains(head, "<div")
}

// ExtractMainText parses HTML and returns the text of the main content area.
// List items are rendered as Markdown bullets. Falls back to the body when no content
// selector matches.
func ExtractMainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(noiseSelector).Remove()

	main := doc.Find("body")
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			main = sel.First()
			break
		}
	}

	main.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
	})
	main.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(main.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
