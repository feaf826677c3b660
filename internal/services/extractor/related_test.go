package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/htmldoc"
)

const hoverSpanQuery = "//div[@class='la-additional-data']//span"

func relatedItem(id string, title string, tooltip string) string {
	return `<div class="la-item"><div><div>` +
		`<div><a href="/org/proj/_workitems/edit/` + id + `">` + title + `</a></div>` +
		`<div class="la-additional-data"><div><div><span data-tip="` + tooltip + `">Updated</span></div></div></div>` +
		`</div></div></div>`
}

func relatedSection(groups string) string {
	return `<div class="links-control-container"><div class="la-main-component"><div class="la-list">` +
		groups + `</div></div></div>`
}

func tooltipFromDataTip(target *html.Node) string {
	if tip := attr(target, "data-tip"); tip != "" {
		return `<p>` + tip + `</p>`
	}
	return ""
}

func TestRelatedWork_GroupsAndTooltipDates(t *testing.T) {
	doc := newDocument(t, relatedSection(
		`<div><div class="la-group-title">Parent (1)</div>`+
			relatedItem("100", "Epic 100", "Updated by Jane Doe 12 June 2023 14:32")+`</div>`+
			`<div><div class="la-group-title">Child (2)</div>`+
			relatedItem("201", "Task one", "Updated by John Roe 3 Feb 2024 09:05")+
			relatedItem("202", "Task two", "Updated by John Roe 4 Feb 2024 11:00")+`</div>`))
	showTooltipOnHover(doc, hoverSpanQuery, tooltipFromDataTip)

	groups, err := newTestExtractor(doc, testConfig()).RelatedWork(context.Background())
	require.NoError(t, err)

	require.Len(t, groups, 2)
	assert.Equal(t, "Parent", groups[0].Type)
	assert.Equal(t, []models.RelatedWorkRef{{
		FilenameSource: "100_Epic_100",
		LinkTarget:     "100_Epic_100_update_2023-06-12T14:32_Parent",
		UpdatedAt:      "12 June 2023 14:32",
	}}, groups[0].Items)

	assert.Equal(t, "Child", groups[1].Type)
	require.Len(t, groups[1].Items, 2)
	assert.Equal(t, "201_Task_one_update_2024-02-03T09:05_Child", groups[1].Items[0].LinkTarget)
	assert.Equal(t, "202_Task_two_update_2024-02-04T11:00_Child", groups[1].Items[1].LinkTarget)
}

func TestRelatedWork_RevisionsHaveDistinctTargets(t *testing.T) {
	doc := newDocument(t, relatedSection(
		`<div><div class="la-group-title">Related</div>`+
			relatedItem("300", "Shared design", "Updated by Jane Doe 12 June 2023 14:32")+
			relatedItem("300", "Shared design", "Updated by Jane Doe 14 June 2023 08:00")+`</div>`))
	showTooltipOnHover(doc, hoverSpanQuery, tooltipFromDataTip)

	groups, err := newTestExtractor(doc, testConfig()).RelatedWork(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Items, 2)

	first, second := groups[0].Items[0], groups[0].Items[1]
	assert.Equal(t, first.FilenameSource, second.FilenameSource)
	assert.NotEqual(t, first.LinkTarget, second.LinkTarget)
}

func TestRelatedWork_ShowMoreRevealsGroups(t *testing.T) {
	doc := newDocument(t, `<div class="links-control-container"><div class="la-main-component">`+
		`<div class="la-show-more">Show more</div><div class="la-list"></div></div></div>`)
	doc.OnClick("//div[@class='la-show-more']", func(d *htmldoc.Document, target *html.Node) error {
		d.Remove(target)
		return d.AppendHTML(d.QueryOne("//div[@class='la-list']"),
			`<div><div class="la-group-title">Successor</div>`+
				relatedItem("500", "Follow up", "Updated by Jane Doe 1 March 2024 16:45")+`</div>`)
	})
	showTooltipOnHover(doc, hoverSpanQuery, tooltipFromDataTip)

	groups, err := newTestExtractor(doc, testConfig()).RelatedWork(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Successor", groups[0].Type)
	assert.Equal(t, "500_Follow_up_update_2024-03-01T16:45_Successor", groups[0].Items[0].LinkTarget)
}

func TestRelatedWork_TooltipNeverShownKeepsItem(t *testing.T) {
	doc := newDocument(t, relatedSection(
		`<div><div class="la-group-title">Parent</div>`+relatedItem("100", "Epic 100", "")+`</div>`))
	showTooltipOnHover(doc, hoverSpanQuery, tooltipFromDataTip)

	groups, err := newTestExtractor(doc, testConfig()).RelatedWork(context.Background())
	require.NoError(t, err)

	require.Len(t, groups[0].Items, 1)
	assert.Equal(t, models.RelatedWorkRef{
		FilenameSource: "100_Epic_100",
		LinkTarget:     "100_Epic_100_update__Parent",
		UpdatedAt:      "",
	}, groups[0].Items[0])
}

func TestRelatedWork_DateDrift(t *testing.T) {
	markup := relatedSection(`<div><div class="la-group-title">Parent</div>` +
		relatedItem("100", "Epic 100", "Updated by Jane Doe on Monday") + `</div>`)

	strict := newDocument(t, markup)
	showTooltipOnHover(strict, hoverSpanQuery, tooltipFromDataTip)
	_, err := newTestExtractor(strict, testConfig()).RelatedWork(context.Background())
	require.ErrorIs(t, err, ErrTooltipFormat)

	lenient := newDocument(t, markup)
	showTooltipOnHover(lenient, hoverSpanQuery, tooltipFromDataTip)
	config := testConfig()
	config.StrictDates = false

	groups, err := newTestExtractor(lenient, config).RelatedWork(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe on Monday", groups[0].Items[0].UpdatedAt)
	assert.Equal(t, "100_Epic_100_update__Parent", groups[0].Items[0].LinkTarget)
}

func TestRelatedWork_MissingLink(t *testing.T) {
	doc := newDocument(t, relatedSection(
		`<div><div class="la-group-title">Parent</div><div class="la-item"><div><div><div>deleted</div></div></div></div></div>`))

	_, err := newTestExtractor(doc, testConfig()).RelatedWork(context.Background())
	require.ErrorIs(t, err, ErrElementNotFound)
}
