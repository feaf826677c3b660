package extractor

import (
	"context"
	"fmt"
	"net/url"
)

// Description returns the raw description markup and its markdown rendition.
// Both are empty when the item has no description field.
func (e *Extractor) Description(ctx context.Context) (string, string, error) {
	dialog, err := e.dialog(ctx)
	if err != nil {
		return "", "", err
	}

	field, err := e.find(ctx, dialog, e.selectors.Description)
	if err != nil || field == nil {
		return "", "", err
	}

	raw, err := e.session.InnerHTML(ctx, field)
	if err != nil {
		return "", "", fmt.Errorf("failed to read description: %w", err)
	}

	location, err := e.session.Location(ctx)
	if err != nil {
		return "", "", err
	}

	var domain string
	if u, perr := url.Parse(location); perr == nil {
		domain = u.Host
	}

	markdown, err := e.markdown.HTMLToMarkdown(raw, domain)
	if err != nil {
		return raw, "", err
	}

	return raw, markdown, nil
}
