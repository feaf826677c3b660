package extractor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/services/htmldoc"
)

const hoverDialog = `<span class="trigger">2 days ago</span>`

const tooltipQuery = "//p[@class='tip']"

type hoverCounts struct {
	enters int
	leaves int
}

// countHovers reveals the tooltip on the revealOn-th pointer enter; zero never reveals
func countHovers(doc *htmldoc.Document, revealOn int) *hoverCounts {
	counts := &hoverCounts{}
	doc.OnPointer("//span[@class='trigger']", interfaces.PointerEnter, func(d *htmldoc.Document, target *html.Node) error {
		counts.enters++
		if revealOn > 0 && counts.enters >= revealOn && d.QueryOne(tooltipQuery) == nil {
			return d.AppendHTML(d.QueryOne("//body"), `<div class="tooltip-layer"><p class="tip">Updated by Jane Doe 12 June 2023 14:32</p></div>`)
		}
		return nil
	})
	doc.OnPointer("//span[@class='trigger']", interfaces.PointerLeave, func(d *htmldoc.Document, target *html.Node) error {
		counts.leaves++
		hideTooltips(d)
		return nil
	})
	return counts
}

func newHoverFixture(t *testing.T, revealOn int, maxAttempts int) (*htmldoc.Document, *hoverCounts, *sleepRecorder, *HoverResolver, interfaces.Element) {
	t.Helper()
	doc := newDocument(t, hoverDialog)
	counts := countHovers(doc, revealOn)
	sleeps := &sleepRecorder{}
	resolver := NewHoverResolver(doc, HoverPolicy{MaxAttempts: maxAttempts, Backoff: 3 * time.Second}, sleeps.sleep, arbor.NewLogger())

	trigger, err := doc.Find(context.Background(), nil, "//span[@class='trigger']")
	require.NoError(t, err)
	require.NotNil(t, trigger)

	return doc, counts, sleeps, resolver, trigger
}

func TestHoverResolver_RevealsAfterRetries(t *testing.T) {
	doc, counts, sleeps, resolver, trigger := newHoverFixture(t, 3, 5)

	text, err := resolver.Resolve(context.Background(), HoverRequest{
		Trigger: trigger,
		Reveal:  tooltipQuery,
		Label:   "test",
	})
	require.NoError(t, err)

	assert.Equal(t, "Updated by Jane Doe 12 June 2023 14:32", text)
	assert.Equal(t, 3, counts.enters)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeps.calls, "sleeps only between failed attempts")
	assert.Equal(t, 1, counts.leaves)
	assert.Nil(t, doc.QueryOne(tooltipQuery), "tooltip dismissed on exit")
}

func TestHoverResolver_SoftFailsAfterBudget(t *testing.T) {
	_, counts, sleeps, resolver, trigger := newHoverFixture(t, 0, 4)

	text, err := resolver.Resolve(context.Background(), HoverRequest{
		Trigger: trigger,
		Reveal:  tooltipQuery,
		Label:   "test",
	})
	require.NoError(t, err, "exhausting the budget is not an error")

	assert.Equal(t, "", text)
	assert.Equal(t, 4, counts.enters, "exactly max attempts")
	assert.Len(t, sleeps.calls, 3)
	assert.Equal(t, 1, counts.leaves)
}

func TestHoverResolver_NilTrigger(t *testing.T) {
	_, counts, _, resolver, _ := newHoverFixture(t, 1, 3)

	text, err := resolver.Resolve(context.Background(), HoverRequest{Reveal: tooltipQuery, Label: "missing"})
	require.NoError(t, err)
	assert.Equal(t, "", text)
	assert.Equal(t, 0, counts.enters)
}

func TestHoverResolver_CancelledBetweenAttempts(t *testing.T) {
	doc := newDocument(t, hoverDialog)
	counts := countHovers(doc, 0)

	ctx, cancel := context.WithCancel(context.Background())
	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	resolver := NewHoverResolver(doc, HoverPolicy{MaxAttempts: 5, Backoff: time.Second}, sleep, arbor.NewLogger())

	trigger, err := doc.Find(ctx, nil, "//span[@class='trigger']")
	require.NoError(t, err)

	_, err = resolver.Resolve(ctx, HoverRequest{Trigger: trigger, Reveal: tooltipQuery, Label: "test"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, counts.enters)
	assert.Equal(t, 1, counts.leaves, "pointer leave dispatched even when cancelled")
}

func TestHoverResolver_BeforeLeaveSeesRevealedContent(t *testing.T) {
	doc, _, _, resolver, trigger := newHoverFixture(t, 1, 3)

	var visible bool
	_, err := resolver.Resolve(context.Background(), HoverRequest{
		Trigger: trigger,
		Reveal:  tooltipQuery,
		Label:   "test",
		BeforeLeave: func(ctx context.Context) {
			visible = doc.QueryOne(tooltipQuery) != nil
		},
	})
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
