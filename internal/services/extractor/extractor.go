// -----------------------------------------------------------------------
// Work Item Extractor - structured records from a rendered detail view
// -----------------------------------------------------------------------

package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/transform"
)

// Extractor reads each section of the work item detail view open in a DocumentSession.
// It is not safe for concurrent use: every operation drives the one shared session.
type Extractor struct {
	session   interfaces.DocumentSession
	retriever interfaces.Retriever
	sink      interfaces.SnapshotSink
	hover     *HoverResolver
	markdown  interfaces.TransformService
	dates     DateFormat
	config    common.ExtractionConfig
	selectors common.SelectorsConfig
	logger    arbor.ILogger
	sleep     SleepFunc
	now       func() time.Time

	skipDevelopment bool
}

// Option customises an Extractor
type Option func(*Extractor)

// WithRetriever sets the downloader for rewritten attachment URLs
func WithRetriever(retriever interfaces.Retriever) Option {
	return func(e *Extractor) { e.retriever = retriever }
}

// WithSnapshotSink sets the receiver of debug snapshots
func WithSnapshotSink(sink interfaces.SnapshotSink) Option {
	return func(e *Extractor) { e.sink = sink }
}

// WithSleep replaces the pause between hover attempts
func WithSleep(sleep SleepFunc) Option {
	return func(e *Extractor) { e.sleep = sleep }
}

// WithTransformService replaces the markdown converter used for the description
func WithTransformService(markdown interfaces.TransformService) Option {
	return func(e *Extractor) { e.markdown = markdown }
}

// WithClock replaces the clock used for ExtractedAt
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithoutDevelopment makes ExtractAll leave development artifacts empty. Static
// snapshots cannot open the secondary windows they live in.
func WithoutDevelopment() Option {
	return func(e *Extractor) { e.skipDevelopment = true }
}

// NewExtractor creates an extractor over session
func NewExtractor(session interfaces.DocumentSession, config common.ExtractionConfig, logger arbor.ILogger, opts ...Option) *Extractor {
	e := &Extractor{
		session:   session,
		markdown:  transform.NewService(logger),
		dates:     NewDateFormat(config),
		config:    config,
		selectors: config.Selectors,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.hover = NewHoverResolver(session, HoverPolicy{
		MaxAttempts: config.HoverMaxAttempts,
		Backoff:     config.HoverBackoff.Std(),
	}, e.sleep, logger)

	return e
}

// ExtractAll runs every section extractor in order. Structural failures abort the run.
// Retrieval failures do not: the item is returned complete alongside an error wrapping ErrRetrieval.
func (e *Extractor) ExtractAll(ctx context.Context, runID string) (*models.WorkItem, error) {
	location, err := e.session.Location(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read location: %w", err)
	}

	item := &models.WorkItem{
		RunID:       runID,
		URL:         location,
		ExtractedAt: e.now(),
	}

	e.logger.Info().
		Str("run_id", runID).
		Str("url", location).
		Msg("Extracting work item")

	var retrievalErrs []error
	softRetrieval := func(section string, err error) error {
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrRetrieval) {
			e.logger.Warn().Err(err).Str("section", section).Msg("Some files could not be retrieved")
			retrievalErrs = append(retrievalErrs, err)
			return nil
		}
		return fmt.Errorf("%s: %w", section, err)
	}

	if item.Description, item.DescriptionMarkdown, err = e.Description(ctx); err != nil {
		return nil, fmt.Errorf("description: %w", err)
	}
	if item.History, err = e.History(ctx); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if item.RelatedWork, err = e.RelatedWork(ctx); err != nil {
		return nil, fmt.Errorf("related work: %w", err)
	}

	item.Discussions, err = e.Discussions(ctx)
	if err = softRetrieval("discussion", err); err != nil {
		return nil, err
	}

	item.Attachments, err = e.Attachments(ctx)
	if err = softRetrieval("attachments", err); err != nil {
		return nil, err
	}

	if e.skipDevelopment {
		e.logger.Debug().Msg("Development section skipped")
		item.Development = []models.DevelopmentArtifact{}
	} else if item.Development, err = e.Development(ctx); err != nil {
		return nil, fmt.Errorf("development: %w", err)
	}

	e.logger.Info().
		Str("run_id", runID).
		Int("history", len(item.History)).
		Int("related_groups", len(item.RelatedWork)).
		Int("discussions", len(item.Discussions)).
		Int("attachments", len(item.Attachments)).
		Int("development", len(item.Development)).
		Msg("Work item extracted")

	return item, errors.Join(retrievalErrs...)
}

// dialog locates the detail view root; every section is scoped beneath it
func (e *Extractor) dialog(ctx context.Context) (interfaces.Element, error) {
	return e.require(ctx, nil, e.selectors.Dialog, "work item dialog")
}

// require finds the first match and fails with ErrElementNotFound when absent
func (e *Extractor) require(ctx context.Context, scope interfaces.Element, query string, what string) (interfaces.Element, error) {
	el, err := e.find(ctx, scope, query)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrElementNotFound, what, query)
	}
	return el, nil
}

// find treats an unconfigured query as absent
func (e *Extractor) find(ctx context.Context, scope interfaces.Element, query string) (interfaces.Element, error) {
	if query == "" {
		return nil, nil
	}
	return e.session.Find(ctx, scope, query)
}

func (e *Extractor) findAll(ctx context.Context, scope interfaces.Element, query string) ([]interfaces.Element, error) {
	if query == "" {
		return nil, nil
	}
	return e.session.FindAll(ctx, scope, query)
}

// findLast returns the last match, or nil
func (e *Extractor) findLast(ctx context.Context, scope interfaces.Element, query string) (interfaces.Element, error) {
	all, err := e.findAll(ctx, scope, query)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[len(all)-1], nil
}

// readText returns the text of the first match and whether one existed
func (e *Extractor) readText(ctx context.Context, scope interfaces.Element, query string) (string, bool, error) {
	el, err := e.find(ctx, scope, query)
	if err != nil || el == nil {
		return "", false, err
	}
	text, err := e.session.Text(ctx, el)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// readOptional maps absence to nil
func (e *Extractor) readOptional(ctx context.Context, scope interfaces.Element, query string) (*string, error) {
	text, ok, err := e.readText(ctx, scope, query)
	if err != nil || !ok {
		return nil, err
	}
	return &text, nil
}

// requireAttribute fails with ErrElementNotFound when the attribute is missing
func (e *Extractor) requireAttribute(ctx context.Context, el interfaces.Element, name string, what string) (string, error) {
	value, ok, err := e.session.Attribute(ctx, el, name)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s has no %s", ErrElementNotFound, what, name)
	}
	return value, nil
}

// resolveDate turns hover text into its display date and file name stamp.
// Empty text is the soft hover failure and yields empty values. Unparseable text
// fails with ErrTooltipFormat in strict mode, otherwise it is logged and the stamp left empty.
func (e *Extractor) resolveDate(text string, label string) (string, string, error) {
	if text == "" {
		return "", "", nil
	}

	parsed, err := e.dates.ParseTooltip(text)
	if err != nil {
		if e.config.StrictDates {
			return "", "", fmt.Errorf("%s: %w", label, err)
		}
		e.logger.Warn().Err(err).Str("label", label).Msg("Tooltip date not recognised, file name stamp left empty")
		return parsed.Display, "", nil
	}

	return parsed.Display, e.dates.Stamp(parsed.Time), nil
}

// retrieve downloads ref when a retriever is configured. Failures wrap ErrRetrieval.
func (e *Extractor) retrieve(ctx context.Context, ref models.AttachmentRef, source string) error {
	if e.retriever == nil {
		return nil
	}
	if err := e.retriever.Retrieve(ctx, ref, source); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRetrieval, ref.Filename, err)
	}
	return nil
}

// snapshot hands the current document to the sink; failures are only logged
func (e *Extractor) snapshot(ctx context.Context, name string) {
	if e.sink == nil {
		return
	}
	var markup string
	if err := e.session.Evaluate(ctx, interfaces.DocumentHTMLScript, &markup); err != nil {
		e.logger.Warn().Err(err).Str("snapshot", name).Msg("Failed to capture snapshot")
		return
	}
	if err := e.sink.Snapshot(name, markup); err != nil {
		e.logger.Warn().Err(err).Str("snapshot", name).Msg("Failed to write snapshot")
	}
}
