package interfaces

// TransformService converts rich-text field markup to markdown
type TransformService interface {
	// HTMLToMarkdown strips editor controls and converts the rest.
	// domain is the host relative links resolve against.
	HTMLToMarkdown(html string, domain string) (string, error)
}
