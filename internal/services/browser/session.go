// -----------------------------------------------------------------------
// Browser Session - chromedp implementation of interfaces.DocumentSession
// -----------------------------------------------------------------------

package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
)

type tab struct {
	id     target.ID
	ctx    context.Context
	cancel context.CancelFunc
}

type remoteElement struct {
	ref   string
	tabID target.ID
}

func (e *remoteElement) Handle() string {
	return string(e.tabID) + ":" + e.ref
}

// Session drives one Chrome instance. It is not safe for concurrent use:
// extraction is strictly sequential over a single session.
type Session struct {
	config common.BrowserConfig
	logger arbor.ILogger

	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc

	primary target.ID
	current *tab
	tabs    map[target.ID]*tab
	order   []target.ID
}

// NewSession launches Chrome, verifies it responds and enables downloads into config.DownloadDir
func NewSession(ctx context.Context, config common.BrowserConfig, logger arbor.ILogger) (*Session, error) {
	if err := os.MkdirAll(config.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, buildAllocatorOptions(config)...)

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			logger.Debug().Msgf("chromedp: "+s, i...)
		}),
	)

	s := &Session{
		config:          config,
		logger:          logger,
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		tabs:            make(map[target.ID]*tab),
	}

	startCtx, startCancel := context.WithTimeout(browserCtx, config.StartupTimeout.Std())
	defer startCancel()

	startTime := time.Now()
	if err := chromedp.Run(startCtx,
		chromedp.Navigate("about:blank"),
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(config.DownloadDir).
			WithEventsEnabled(true),
	); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	c := chromedp.FromContext(browserCtx)
	if c == nil || c.Target == nil {
		s.Close()
		return nil, fmt.Errorf("browser started without an attached target")
	}

	s.primary = c.Target.TargetID
	s.current = &tab{id: s.primary, ctx: browserCtx, cancel: browserCancel}
	s.tabs[s.primary] = s.current
	s.order = []target.ID{s.primary}

	logger.Info().
		Bool("headless", config.Headless).
		Str("user_data_dir", config.UserDataDir).
		Str("download_dir", config.DownloadDir).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser session started")

	return s, nil
}

// Open navigates the primary context to pageURL and waits for client-side rendering to settle
func (s *Session) Open(ctx context.Context, pageURL string) error {
	if s.current == nil || s.current.id != s.primary {
		if err := s.SwitchContext(ctx, string(s.primary)); err != nil {
			return err
		}
	}

	s.logger.Info().Str("url", pageURL).Msg("Opening work item")

	return s.run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.config.JavaScriptWaitTime.Std()),
	)
}

// Close shuts down every tab and the browser process
func (s *Session) Close() {
	for id, t := range s.tabs {
		if id != s.primary && t.cancel != nil {
			t.cancel()
		}
	}
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocatorCancel != nil {
		s.allocatorCancel()
	}
	s.tabs = map[target.ID]*tab{}
	s.current = nil
	s.logger.Debug().Msg("Browser session closed")
}

// run executes actions against the focused tab, honouring cancellation of ctx
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.current == nil {
		return fmt.Errorf("no focused browsing context")
	}

	runCtx, cancel := context.WithCancel(s.current.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *Session) ref(el interfaces.Element) (string, error) {
	if el == nil {
		return "", nil
	}
	e, ok := el.(*remoteElement)
	if !ok || e == nil {
		return "", fmt.Errorf("element %v was not located by this session", el)
	}
	if s.current == nil || e.tabID != s.current.id {
		return "", fmt.Errorf("stale element %s: focused context differs", e.Handle())
	}
	return e.ref, nil
}

func (s *Session) Find(ctx context.Context, scope interfaces.Element, query string) (interfaces.Element, error) {
	all, err := s.FindAll(ctx, scope, query)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (s *Session) FindAll(ctx context.Context, scope interfaces.Element, query string) ([]interfaces.Element, error) {
	scopeRef, err := s.ref(scope)
	if err != nil {
		return nil, err
	}

	var refs []string
	if err := s.run(ctx, chromedp.Evaluate(findAllScript(scopeRef, query), &refs)); err != nil {
		return nil, fmt.Errorf("query %q failed: %w", query, err)
	}

	elements := make([]interfaces.Element, 0, len(refs))
	for _, r := range refs {
		elements = append(elements, &remoteElement{ref: r, tabID: s.current.id})
	}
	return elements, nil
}

func (s *Session) Text(ctx context.Context, el interfaces.Element) (string, error) {
	r, err := s.ref(el)
	if err != nil {
		return "", err
	}
	var text string
	if err := s.run(ctx, chromedp.Evaluate(textScript(r), &text)); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return text, nil
}

func (s *Session) Attribute(ctx context.Context, el interfaces.Element, name string) (string, bool, error) {
	r, err := s.ref(el)
	if err != nil {
		return "", false, err
	}
	var res attributeResult
	if err := s.run(ctx, chromedp.Evaluate(attributeScript(r, name), &res)); err != nil {
		return "", false, fmt.Errorf("failed to read attribute %s: %w", name, err)
	}
	return res.Value, res.Present, nil
}

func (s *Session) InnerHTML(ctx context.Context, el interfaces.Element) (string, error) {
	if el == nil {
		var markup string
		err := s.Evaluate(ctx, interfaces.DocumentHTMLScript, &markup)
		return markup, err
	}
	r, err := s.ref(el)
	if err != nil {
		return "", err
	}
	var markup string
	if err := s.run(ctx, chromedp.Evaluate(innerHTMLScript(r), &markup)); err != nil {
		return "", fmt.Errorf("failed to read inner HTML: %w", err)
	}
	return markup, nil
}

func (s *Session) Click(ctx context.Context, el interfaces.Element) error {
	r, err := s.ref(el)
	if err != nil {
		return err
	}
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(clickScript(r), &ok)); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (s *Session) DispatchPointer(ctx context.Context, el interfaces.Element, event interfaces.PointerEvent) error {
	r, err := s.ref(el)
	if err != nil {
		return err
	}
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(pointerScript(r, string(event)), &ok)); err != nil {
		return fmt.Errorf("dispatch %s failed: %w", event, err)
	}
	return nil
}

// Navigate loads rawURL in the focused context. Attachment URLs start a download
// instead of a page load; Chrome reports those as aborted navigations.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	err := s.run(ctx, chromedp.Navigate(rawURL))
	if err != nil && strings.Contains(err.Error(), "net::ERR_ABORTED") {
		s.logger.Debug().Str("url", rawURL).Msg("Navigation handed off to download")
		return nil
	}
	if err != nil {
		return fmt.Errorf("navigate to %s failed: %w", rawURL, err)
	}
	return nil
}

func (s *Session) Evaluate(ctx context.Context, script string, res interface{}) error {
	return s.run(ctx, chromedp.Evaluate(script, res))
}

// pageTargets returns the ids of open page targets in opening order
func (s *Session) pageTargets(ctx context.Context) ([]target.ID, error) {
	infos, err := chromedp.Targets(s.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}

	open := make(map[target.ID]bool)
	for _, info := range infos {
		if info.Type == "page" {
			open[info.TargetID] = true
		}
	}

	// Keep known targets in opening order, append new ones, drop closed ones
	ordered := make([]target.ID, 0, len(open))
	seen := make(map[target.ID]bool)
	for _, id := range s.order {
		if open[id] {
			ordered = append(ordered, id)
			seen[id] = true
		}
	}
	for _, info := range infos {
		if open[info.TargetID] && !seen[info.TargetID] {
			ordered = append(ordered, info.TargetID)
			seen[info.TargetID] = true
		}
	}
	s.order = ordered

	return ordered, ctx.Err()
}

func (s *Session) WaitForContexts(ctx context.Context, count int, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.config.PollInterval.Std())
	defer ticker.Stop()

	for {
		ids, err := s.pageTargets(ctx)
		if err != nil {
			return err
		}
		if len(ids) == count {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%d browsing contexts open after %s, want %d: %w",
				len(ids), timeout, count, context.DeadlineExceeded)
		case <-ticker.C:
		}
	}
}

func (s *Session) Contexts(ctx context.Context) ([]string, error) {
	ids, err := s.pageTargets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out, nil
}

func (s *Session) CurrentContext() string {
	if s.current == nil {
		return ""
	}
	return string(s.current.id)
}

func (s *Session) SwitchContext(ctx context.Context, id string) error {
	tid := target.ID(id)
	if t, ok := s.tabs[tid]; ok {
		s.current = t
		return nil
	}

	tabCtx, cancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(tid))
	// An empty run attaches to the target
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to attach to browsing context %s: %w", id, err)
	}

	t := &tab{id: tid, ctx: tabCtx, cancel: cancel}
	s.tabs[tid] = t
	s.current = t

	s.logger.Debug().Str("context_id", id).Msg("Switched browsing context")
	return nil
}

func (s *Session) CloseContext(ctx context.Context) error {
	if s.current == nil {
		return fmt.Errorf("no focused browsing context")
	}
	if s.current.id == s.primary {
		return fmt.Errorf("refusing to close the primary browsing context")
	}

	closing := s.current
	err := s.run(ctx, page.Close())
	closing.cancel()
	delete(s.tabs, closing.id)
	s.current = nil

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browsing context %s: %w", closing.id, err)
	}

	s.logger.Debug().Str("context_id", string(closing.id)).Msg("Browsing context closed")
	return nil
}

func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return title, nil
}

var _ interfaces.DocumentSession = (*Session)(nil)
