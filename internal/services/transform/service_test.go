package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestHTMLToMarkdown_StripsEditorChrome(t *testing.T) {
	service := NewService(arbor.NewLogger())

	markdown, err := service.HTMLToMarkdown(
		`<div><p>Steps to <b>reproduce</b></p><button>Edit</button><div role="toolbar">Bold Italic</div>`+
			`<a href="/wiki/page">wiki</a></div>`,
		"dev.example")
	require.NoError(t, err)

	assert.Contains(t, markdown, "Steps to **reproduce**")
	assert.Contains(t, markdown, "[wiki](")
	assert.Contains(t, markdown, "dev.example/wiki/page)")
	assert.NotContains(t, markdown, "Edit")
	assert.NotContains(t, markdown, "Bold Italic")
}

func TestHTMLToMarkdown_Empty(t *testing.T) {
	service := NewService(arbor.NewLogger())

	markdown, err := service.HTMLToMarkdown("   ", "")
	require.NoError(t, err)
	assert.Equal(t, "", markdown)
}
