package transform

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quarry/internal/interfaces"
)

// editorChrome matches controls the rich-text editor renders inside field markup
var editorChrome = []string{
	"button", "script", "style",
	"[role='toolbar']", "[role='button']",
	"[contenteditable='false'].ms-Button",
	".bowtie-icon", ".ms-Button",
}

// Service converts rich-text field markup to markdown
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) interfaces.TransformService {
	return &Service{
		logger: logger,
	}
}

// HTMLToMarkdown strips editor chrome from html and converts the rest to markdown.
// domain is the host relative links resolve against. A failed or empty conversion falls back to plain text.
func (s *Service) HTMLToMarkdown(html string, domain string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse field markup: %w", err)
	}

	body := doc.Find("body")
	for _, selector := range editorChrome {
		body.Find(selector).Remove()
	}

	cleaned, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render cleaned markup: %w", err)
	}

	converter := md.NewConverter(domain, true, nil)
	converted, err := converter.ConvertString(cleaned)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using plain text")
		return plainText(body), nil
	}

	if strings.TrimSpace(converted) == "" {
		s.logger.Debug().
			Int("html_length", len(html)).
			Msg("Markdown conversion produced empty output, using plain text")
		return plainText(body), nil
	}

	s.logger.Debug().
		Int("markdown_length", len(converted)).
		Int("html_length", len(html)).
		Msg("Field markup converted to markdown")

	return converted, nil
}

func plainText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
