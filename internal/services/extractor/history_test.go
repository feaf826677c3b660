package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"

	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/htmldoc"
)

const collapsedHistory = `<div class="workitem-history-control-container">
  <div class="history-group-header" aria-expanded="false">Last week</div>
  <div class="history-group-body"></div>
  <div class="history-details-panel"></div>
</div>`

const priorityPanel = `<span class="history-item-name-changed-by">Jane Doe</span>
<span class="history-item-date">12 June 2023</span>
<div class="history-item-summary-text">Changed Priority</div>
<div><div class="field-name"><span>Priority</span></div><div><span class="field-old-value">2</span><span class="field-new-value">1</span></div></div>`

// scriptHistory expands the group on click and renders each item's panel on selection
func scriptHistory(doc *htmldoc.Document, items string, panels map[string]string) *int {
	expands := 0
	doc.OnClick("//div[contains(@class, 'history-group-header')]", func(d *htmldoc.Document, target *html.Node) error {
		expands++
		d.SetAttribute(target, "aria-expanded", "true")
		return d.AppendHTML(d.QueryOne("//div[@class='history-group-body']"), items)
	})
	doc.OnClick("//div[@class='history-item-summary-details']", func(d *htmldoc.Document, target *html.Node) error {
		return d.ReplaceChildren(d.QueryOne("//div[@class='history-details-panel']"), panels[attr(target, "data-rev")])
	})
	return &expands
}

func TestHistory_CollapsedGroupWithPlainField(t *testing.T) {
	doc := newDocument(t, collapsedHistory)
	scriptHistory(doc,
		`<div class="history-item-summary-details" data-rev="1">Jane Doe changed Priority</div>`,
		map[string]string{"1": priorityPanel})

	entries, err := newTestExtractor(doc, testConfig()).History(context.Background())
	require.NoError(t, err)

	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "Jane Doe", entry.Actor)
	assert.Equal(t, "12 June 2023", entry.Timestamp)
	assert.Equal(t, "Changed Priority", entry.Title)
	assert.Nil(t, entry.Comment)
	assert.Equal(t, []models.FieldChange{{
		Name:     "Priority",
		OldValue: strPtr("2"),
		NewValue: strPtr("1"),
		Source:   models.FieldSourcePlain,
	}}, entry.Fields)
	assert.Empty(t, entry.Links)
}

func TestHistory_ExpandIsIdempotent(t *testing.T) {
	doc := newDocument(t, collapsedHistory)
	expands := scriptHistory(doc,
		`<div class="history-item-summary-details" data-rev="1">Jane Doe changed Priority</div>`,
		map[string]string{"1": priorityPanel})
	extractor := newTestExtractor(doc, testConfig())

	first, err := extractor.History(context.Background())
	require.NoError(t, err)
	second, err := extractor.History(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, *expands, "already expanded groups are not clicked again")
	assert.Equal(t, first, second)
}

func TestHistory_RichFieldsCommentAndLinks(t *testing.T) {
	doc := newDocument(t, `<div class="workitem-history-control-container">
  <div class="history-group-header" aria-expanded="true">Today</div>
  <div class="history-group-body">
    <div class="history-item-summary-details" data-rev="2">Jane Doe edited</div>
    <div class="history-item-summary-details" data-rev="1">John Roe created</div>
  </div>
  <div class="history-details-panel"></div>
</div>`)
	scriptHistory(doc, "", map[string]string{
		"2": `<span class="history-item-name-changed-by">Jane Doe</span>
<span class="history-item-date">13 June 2023</span>
<div class="history-item-summary-text">Edited description</div>
<div class="history-item-comment">Clarified steps</div>
<div><div class="field-name"><span>State</span></div><div><span class="field-new-value">Active</span></div></div>
<div><div><div class="html-field-name history-section">Description</div></div><div><span class="html-field-old-value">Old text</span><span class="html-field-new-value">New text</span></div></div>
<div class="history-links"><span class="link-display-name"><span>Parent</span></span><span class="link-text"><a href="/org/proj/_workitems/edit/100">100</a><span>Epic 100</span></span></div>`,
		"1": `<span class="history-item-name-changed-by">John Roe</span>
<span class="history-item-date">12 June 2023</span>
<div class="history-item-summary-text">Created</div>`,
	})

	entries, err := newTestExtractor(doc, testConfig()).History(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	edited := entries[0]
	assert.Equal(t, "Jane Doe", edited.Actor)
	require.NotNil(t, edited.Comment)
	assert.Equal(t, "Clarified steps", *edited.Comment)
	assert.Equal(t, []models.FieldChange{
		{Name: "State", NewValue: strPtr("Active"), Source: models.FieldSourcePlain},
		{Name: "Description", OldValue: strPtr("Old text"), NewValue: strPtr("New text"), Source: models.FieldSourceRichText},
	}, edited.Fields)
	require.Len(t, edited.Links, 1)
	assert.Equal(t, "Parent", edited.Links[0].Type)
	assert.Equal(t, "Epic 100", edited.Links[0].Title)
	require.NotNil(t, edited.Links[0].TargetPath)
	assert.Equal(t, "/org/proj/_workitems/edit/100", *edited.Links[0].TargetPath)

	created := entries[1]
	assert.Equal(t, "John Roe", created.Actor)
	assert.Equal(t, "Created", created.Title)
	assert.Empty(t, created.Fields)
	assert.Nil(t, created.Comment)
}

func TestHistory_NoSection(t *testing.T) {
	doc := newDocument(t, `<div class="form-body"></div>`)

	entries, err := newTestExtractor(doc, testConfig()).History(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestHistory_MissingDetailsPanel(t *testing.T) {
	doc := newDocument(t, `<div class="workitem-history-control-container">
  <div class="history-item-summary-details" data-rev="1">Jane Doe edited</div>
</div>`)

	_, err := newTestExtractor(doc, testConfig()).History(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrElementNotFound)
	assert.Contains(t, err.Error(), "history item 0")
}

func TestExtractor_MissingDialog(t *testing.T) {
	doc, err := htmldoc.New(itemURL, `<html><body><p>Signed out</p></body></html>`, arbor.NewLogger())
	require.NoError(t, err)

	_, err = newTestExtractor(doc, testConfig()).History(context.Background())
	require.ErrorIs(t, err, ErrElementNotFound)
}
