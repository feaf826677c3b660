package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"

	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/htmldoc"
)

const itemURL = "https://dev.example/org/proj/_workitems/edit/42"

func testConfig() common.ExtractionConfig {
	config := common.NewDefaultConfig().Extraction
	config.HoverMaxAttempts = 3
	config.HoverBackoff = common.Duration(time.Second)
	config.ContextTimeout = common.Duration(2 * time.Second)
	return config
}

// page wraps dialog markup in a full work item form
func page(dialog string) string {
	return `<html><head><title>Bug 42</title></head><body><div role="dialog">` + dialog + `</div></body></html>`
}

func newDocument(t *testing.T, dialog string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.New(itemURL, page(dialog), arbor.NewLogger())
	require.NoError(t, err)
	return doc
}

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func newTestExtractor(doc interfaces.DocumentSession, config common.ExtractionConfig, opts ...Option) *Extractor {
	sleeps := &sleepRecorder{}
	opts = append([]Option{WithSleep(sleeps.sleep)}, opts...)
	return NewExtractor(doc, config, arbor.NewLogger(), opts...)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func strPtr(s string) *string {
	return &s
}

// showTooltipOnHover renders a tooltip layer built from the hovered element while the
// pointer is over it, and removes it on pointer leave
func showTooltipOnHover(doc *htmldoc.Document, trigger string, markup func(target *html.Node) string) {
	doc.OnPointer(trigger, interfaces.PointerEnter, func(d *htmldoc.Document, target *html.Node) error {
		hideTooltips(d)
		return d.AppendHTML(d.QueryOne("//body"), `<div class="tooltip-layer">`+markup(target)+`</div>`)
	})
	doc.OnPointer(trigger, interfaces.PointerLeave, func(d *htmldoc.Document, target *html.Node) error {
		hideTooltips(d)
		return nil
	})
}

func hideTooltips(d *htmldoc.Document) {
	for n := d.QueryOne("//div[@class='tooltip-layer']"); n != nil; n = d.QueryOne("//div[@class='tooltip-layer']") {
		d.Remove(n)
	}
}

type recordingRetriever struct {
	refs    []models.AttachmentRef
	sources []string
	fail    map[string]bool
}

func (r *recordingRetriever) Retrieve(ctx context.Context, ref models.AttachmentRef, source string) error {
	r.refs = append(r.refs, ref)
	r.sources = append(r.sources, source)
	if r.fail[ref.Filename] {
		return errors.New("connection reset")
	}
	return nil
}

type memorySink struct {
	snapshots map[string]string
}

func (s *memorySink) Snapshot(name string, markup string) error {
	if s.snapshots == nil {
		s.snapshots = make(map[string]string)
	}
	s.snapshots[name] = markup
	return nil
}
