// -----------------------------------------------------------------------
// HTML Document Session
// DocumentSession over parsed HTML trees, queried with XPath.
// Interactions are scripted with hooks so rendered-on-demand content
// (detail panels, tooltips, secondary windows) can be replayed offline.
// -----------------------------------------------------------------------

package htmldoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"

	"github.com/ternarybob/quarry/internal/interfaces"
)

var (
	// ErrNoContext is returned when no browsing context has focus
	ErrNoContext = errors.New("no focused browsing context")
	// ErrStaleElement is returned for handles located in another browsing context
	ErrStaleElement = errors.New("stale element handle")
	// ErrUnsupportedScript is returned by Evaluate for scripts without a registered result
	ErrUnsupportedScript = errors.New("unsupported script")
)

// Hook runs when an interaction targets a node matched by the hook's query
type Hook func(d *Document, target *html.Node) error

type hook struct {
	query string
	event interfaces.PointerEvent // empty for click hooks
	fn    Hook
}

type browsingContext struct {
	id    string
	url   string
	title string
	root  *html.Node
}

type element struct {
	node      *html.Node
	contextID string
}

func (e *element) Handle() string {
	return fmt.Sprintf("%s:%p", e.contextID, e.node)
}

// Document is an in-memory DocumentSession with one or more browsing contexts
type Document struct {
	logger   arbor.ILogger
	contexts []*browsingContext
	current  string
	nextID   int
	exprs    map[string]*xpath.Expr

	clickHooks   []hook
	pointerHooks []hook
	scripts      map[string]func() (interface{}, error)
	onNavigate   func(url string) error
	navigations  []string
}

// New parses src as the primary browsing context located at pageURL
func New(pageURL string, src string, logger arbor.ILogger) (*Document, error) {
	d := &Document{
		logger:  logger,
		exprs:   make(map[string]*xpath.Expr),
		scripts: make(map[string]func() (interface{}, error)),
	}

	id, err := d.OpenContext(pageURL, src)
	if err != nil {
		return nil, err
	}
	d.current = id

	return d, nil
}

// OpenContext adds a browsing context without moving focus to it and returns its id
func (d *Document) OpenContext(pageURL string, src string) (string, error) {
	root, err := htmlquery.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("failed to parse document for %s: %w", pageURL, err)
	}

	d.nextID++
	bc := &browsingContext{
		id:   fmt.Sprintf("context-%d", d.nextID),
		url:  pageURL,
		root: root,
	}
	if title := htmlquery.FindOne(root, "//title"); title != nil {
		bc.title = strings.TrimSpace(htmlquery.InnerText(title))
	}
	d.contexts = append(d.contexts, bc)

	d.logger.Debug().
		Str("context_id", bc.id).
		Str("url", pageURL).
		Msg("Browsing context opened")

	return bc.id, nil
}

// OnClick registers a hook fired when Click targets a node matching query
func (d *Document) OnClick(query string, fn Hook) {
	d.clickHooks = append(d.clickHooks, hook{query: query, fn: fn})
}

// OnPointer registers a hook fired when DispatchPointer sends event to a node matching query
func (d *Document) OnPointer(query string, event interfaces.PointerEvent, fn Hook) {
	d.pointerHooks = append(d.pointerHooks, hook{query: query, event: event, fn: fn})
}

// OnEvaluate registers the result of a script for Evaluate
func (d *Document) OnEvaluate(script string, fn func() (interface{}, error)) {
	d.scripts[script] = fn
}

// OnNavigate registers a callback invoked for every Navigate call; its error is returned
func (d *Document) OnNavigate(fn func(url string) error) {
	d.onNavigate = fn
}

// Navigations returns every URL passed to Navigate, in call order
func (d *Document) Navigations() []string {
	return append([]string(nil), d.navigations...)
}

// Root returns the document root of the focused browsing context
func (d *Document) Root() *html.Node {
	bc, err := d.focused()
	if err != nil {
		return nil
	}
	return bc.root
}

// QueryOne runs query against the focused context and returns the first node, or nil
func (d *Document) QueryOne(query string) *html.Node {
	root := d.Root()
	if root == nil {
		return nil
	}
	nodes, err := d.query(root, query)
	if err != nil || len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// AppendHTML parses fragment in the context of parent and appends the result to it
func (d *Document) AppendHTML(parent *html.Node, fragment string) error {
	if parent == nil {
		return fmt.Errorf("append target is nil")
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// ReplaceChildren removes every child of parent and appends fragment in their place
func (d *Document) ReplaceChildren(parent *html.Node, fragment string) error {
	if parent == nil {
		return fmt.Errorf("replace target is nil")
	}
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		parent.RemoveChild(c)
		c = next
	}
	return d.AppendHTML(parent, fragment)
}

// Remove detaches n from its parent
func (d *Document) Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// SetAttribute sets or replaces an attribute on n
func (d *Document) SetAttribute(n *html.Node, name string, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// Find returns the first node matching query under scope
func (d *Document) Find(ctx context.Context, scope interfaces.Element, query string) (interfaces.Element, error) {
	all, err := d.FindAll(ctx, scope, query)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// FindAll returns every element matching query under scope in document order
func (d *Document) FindAll(ctx context.Context, scope interfaces.Element, query string) ([]interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	top, err := d.scopeNode(scope)
	if err != nil {
		return nil, err
	}

	nodes, err := d.query(top, query)
	if err != nil {
		return nil, err
	}

	result := make([]interfaces.Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		result = append(result, &element{node: n, contextID: d.current})
	}
	return result, nil
}

// Text returns the trimmed text content of el
func (d *Document) Text(ctx context.Context, el interfaces.Element) (string, error) {
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(htmlquery.InnerText(n)), nil
}

// Attribute returns the attribute value of el. href and src are resolved against the context URL.
func (d *Document) Attribute(ctx context.Context, el interfaces.Element, name string) (string, bool, error) {
	n, err := d.node(el)
	if err != nil {
		return "", false, err
	}

	for _, attr := range n.Attr {
		if attr.Key != name {
			continue
		}
		if name == "href" || name == "src" {
			return d.resolveURL(attr.Val), true, nil
		}
		return attr.Val, true, nil
	}
	return "", false, nil
}

// InnerHTML returns the markup inside el, or the whole document for a nil element
func (d *Document) InnerHTML(ctx context.Context, el interfaces.Element) (string, error) {
	if el == nil {
		bc, err := d.focused()
		if err != nil {
			return "", err
		}
		return htmlquery.OutputHTML(bc.root, false), nil
	}
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	return htmlquery.OutputHTML(n, false), nil
}

// Click fires every click hook whose query matches el
func (d *Document) Click(ctx context.Context, el interfaces.Element) error {
	n, err := d.node(el)
	if err != nil {
		return err
	}
	return d.fire(d.clickHooks, n, "")
}

// DispatchPointer fires every pointer hook registered for event whose query matches el
func (d *Document) DispatchPointer(ctx context.Context, el interfaces.Element, event interfaces.PointerEvent) error {
	n, err := d.node(el)
	if err != nil {
		return err
	}
	return d.fire(d.pointerHooks, n, event)
}

// Navigate records the URL. The focused document is left untouched, matching a download navigation.
func (d *Document) Navigate(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.navigations = append(d.navigations, rawURL)
	if d.onNavigate != nil {
		return d.onNavigate(rawURL)
	}
	return nil
}

// Evaluate supports DocumentHTMLScript and scripts registered with OnEvaluate
func (d *Document) Evaluate(ctx context.Context, script string, res interface{}) error {
	var value interface{}

	if fn, ok := d.scripts[script]; ok {
		v, err := fn()
		if err != nil {
			return err
		}
		value = v
	} else if script == interfaces.DocumentHTMLScript {
		bc, err := d.focused()
		if err != nil {
			return err
		}
		value = htmlquery.OutputHTML(bc.root, false)
	} else {
		return fmt.Errorf("%w: %s", ErrUnsupportedScript, script)
	}

	if res == nil {
		return nil
	}
	if s, ok := res.(*string); ok {
		if str, ok := value.(string); ok {
			*s = str
			return nil
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode script result: %w", err)
	}
	return json.Unmarshal(data, res)
}

// WaitForContexts succeeds when exactly count contexts are open. Hooks run synchronously,
// so nothing can open later and a mismatch fails immediately with a deadline error.
func (d *Document) WaitForContexts(ctx context.Context, count int, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(d.contexts) == count {
		return nil
	}
	return fmt.Errorf("%d browsing contexts open after %s, want %d: %w",
		len(d.contexts), timeout, count, context.DeadlineExceeded)
}

// Contexts lists context ids in opening order
func (d *Document) Contexts(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(d.contexts))
	for _, bc := range d.contexts {
		ids = append(ids, bc.id)
	}
	return ids, nil
}

// CurrentContext returns the focused context id, empty after CloseContext
func (d *Document) CurrentContext() string {
	return d.current
}

// SwitchContext focuses the context with the given id
func (d *Document) SwitchContext(ctx context.Context, id string) error {
	for _, bc := range d.contexts {
		if bc.id == id {
			d.current = id
			return nil
		}
	}
	return fmt.Errorf("unknown browsing context %q", id)
}

// CloseContext closes the focused context
func (d *Document) CloseContext(ctx context.Context) error {
	for i, bc := range d.contexts {
		if bc.id == d.current {
			d.contexts = append(d.contexts[:i], d.contexts[i+1:]...)
			d.logger.Debug().Str("context_id", bc.id).Msg("Browsing context closed")
			d.current = ""
			return nil
		}
	}
	return ErrNoContext
}

// Location returns the URL of the focused context
func (d *Document) Location(ctx context.Context) (string, error) {
	bc, err := d.focused()
	if err != nil {
		return "", err
	}
	return bc.url, nil
}

// Title returns the title of the focused context
func (d *Document) Title(ctx context.Context) (string, error) {
	bc, err := d.focused()
	if err != nil {
		return "", err
	}
	return bc.title, nil
}

func (d *Document) focused() (*browsingContext, error) {
	for _, bc := range d.contexts {
		if bc.id == d.current {
			return bc, nil
		}
	}
	return nil, ErrNoContext
}

func (d *Document) scopeNode(scope interfaces.Element) (*html.Node, error) {
	if scope == nil {
		bc, err := d.focused()
		if err != nil {
			return nil, err
		}
		return bc.root, nil
	}
	return d.node(scope)
}

func (d *Document) node(el interfaces.Element) (*html.Node, error) {
	e, ok := el.(*element)
	if !ok || e == nil {
		return nil, fmt.Errorf("element %v was not located by this document", el)
	}
	if e.contextID != d.current {
		return nil, fmt.Errorf("%w: located in %s, focused on %s", ErrStaleElement, e.contextID, d.current)
	}
	return e.node, nil
}

func (d *Document) query(top *html.Node, query string) ([]*html.Node, error) {
	if sel, ok := splitGroupSelection(query); ok {
		return d.queryGroup(top, sel)
	}
	if sel, ok := splitStepSelection(query); ok {
		return d.queryStep(top, sel)
	}

	expr, ok := d.exprs[query]
	if !ok {
		compiled, err := xpath.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("invalid query %q: %w", query, err)
		}
		d.exprs[query] = compiled
		expr = compiled
	}
	return htmlquery.QuerySelectorAll(top, expr), nil
}

// queryGroup selects one node from the grouped inner result, then continues with rest from it
func (d *Document) queryGroup(top *html.Node, sel groupSelection) ([]*html.Node, error) {
	nodes, err := d.query(top, sel.inner)
	if err != nil {
		return nil, err
	}

	var picked *html.Node
	switch {
	case len(nodes) == 0:
		return nil, nil
	case sel.last:
		picked = nodes[len(nodes)-1]
	case sel.position <= len(nodes):
		picked = nodes[sel.position-1]
	default:
		return nil, nil
	}

	if sel.rest == "" {
		return []*html.Node{picked}, nil
	}
	return d.query(picked, "."+sel.rest)
}

// queryStep applies the positional predicate per parent, as the child axis defines it
func (d *Document) queryStep(top *html.Node, sel stepSelection) ([]*html.Node, error) {
	nodes, err := d.query(top, sel.base)
	if err != nil {
		return nil, err
	}

	siblings := make(map[*html.Node][]*html.Node)
	for _, n := range nodes {
		siblings[n.Parent] = append(siblings[n.Parent], n)
	}

	var result []*html.Node
	for _, n := range nodes {
		group := siblings[n.Parent]
		switch {
		case sel.last && group[len(group)-1] == n:
			result = append(result, n)
		case !sel.last && sel.position <= len(group) && group[sel.position-1] == n:
			result = append(result, n)
		}
	}
	return result, nil
}

func (d *Document) fire(hooks []hook, target *html.Node, event interfaces.PointerEvent) error {
	root := d.Root()
	if root == nil {
		return ErrNoContext
	}
	for _, h := range hooks {
		if h.event != event {
			continue
		}
		matches, err := d.query(root, h.query)
		if err != nil {
			return err
		}
		for _, m := range matches {
			if m == target {
				if err := h.fn(d, target); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

func (d *Document) resolveURL(ref string) string {
	bc, err := d.focused()
	if err != nil || bc.url == "" {
		return ref
	}
	base, err := url.Parse(bc.url)
	if err != nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

var _ interfaces.DocumentSession = (*Document)(nil)
