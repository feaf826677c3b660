package extractor

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteResourceURL(t *testing.T) {
	rewritten, filename, err := RewriteResourceURL(
		"https://dev.example/org/_apis/wit/attachments/42?fileName=report.pdf",
		"2023-02-01T10:00", "fileName")
	require.NoError(t, err)

	assert.Equal(t, "2023-02-01T10:00_42_report.pdf", filename)
	assert.Contains(t, rewritten, "fileName=2023-02-01T10%3A00_42_report.pdf")

	u, err := url.Parse(rewritten)
	require.NoError(t, err)
	assert.Equal(t, "/org/_apis/wit/attachments/42", u.Path)
	assert.Equal(t, filename, u.Query().Get("fileName"))
	assert.Equal(t, "True", u.Query().Get("download"))
}

func TestRewriteResourceURL_KeepsExistingDownloadFlag(t *testing.T) {
	rewritten, _, err := RewriteResourceURL(
		"https://dev.example/attachments/7?download=False&fileName=a.png&api-version=5.0",
		"2023-06-12T14:32", "fileName")
	require.NoError(t, err)

	u, err := url.Parse(rewritten)
	require.NoError(t, err)
	assert.Equal(t, "False", u.Query().Get("download"))
	assert.Equal(t, "5.0", u.Query().Get("api-version"))
}

func TestRewriteResourceURL_Properties(t *testing.T) {
	inputs := []struct {
		url      string
		id       string
		original string
	}{
		{"https://dev.example/attachments/1?fileName=a.txt", "1", "a.txt"},
		{"https://dev.example/a/b/c/9f2e?z=1&fileName=design%20v2.docx&a=2", "9f2e", "design v2.docx"},
		{"https://dev.example/attachments/77/?fileName=shot.png&download=True", "77", "shot.png"},
	}

	for _, in := range inputs {
		firstURL, firstName, err := RewriteResourceURL(in.url, "2024-01-05T09:15", "fileName")
		require.NoError(t, err, in.url)
		secondURL, secondName, err := RewriteResourceURL(in.url, "2024-01-05T09:15", "fileName")
		require.NoError(t, err, in.url)

		assert.Equal(t, firstURL, secondURL, "deterministic url for %s", in.url)
		assert.Equal(t, firstName, secondName, "deterministic name for %s", in.url)
		assert.Equal(t, "2024-01-05T09:15_"+in.id+"_"+in.original, firstName)

		u, err := url.Parse(firstURL)
		require.NoError(t, err)
		assert.True(t, u.Query().Has("download"), "download flag present for %s", in.url)
	}
}

func TestRewriteResourceURL_DistinctStampsDistinctNames(t *testing.T) {
	source := "https://dev.example/attachments/42?fileName=report.pdf"

	_, first, err := RewriteResourceURL(source, "2023-02-01T10:00", "fileName")
	require.NoError(t, err)
	_, second, err := RewriteResourceURL(source, "2023-03-01T10:00", "fileName")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestRewriteResourceURL_MissingFileName(t *testing.T) {
	_, _, err := RewriteResourceURL("https://cdn.example/logo.png", "2023-02-01T10:00", "fileName")
	require.ErrorIs(t, err, ErrMissingFileName)

	_, _, err = RewriteResourceURL("https://dev.example/attachments/1?name=a.txt", "x", "fileName")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "fileName"))
}
