// -----------------------------------------------------------------------
// Document Session - capability set consumed by the extractors
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"time"
)

// DocumentHTMLScript returns the serialized markup of the whole document.
// Every DocumentSession implementation must support it in Evaluate.
const DocumentHTMLScript = "document.documentElement.outerHTML"

// PointerEvent is a synthetic pointer event dispatched at an element
type PointerEvent string

const (
	PointerEnter PointerEvent = "mouseover"
	PointerLeave PointerEvent = "mouseout"
)

// Element is an opaque handle to a node in the live document.
// Handles are only valid in the browsing context they were located in.
type Element interface {
	Handle() string
}

// DocumentSession is the live interactive document and its automation handle.
// Queries are XPath expressions. A nil scope means the document root of the
// focused browsing context.
type DocumentSession interface {
	// Find returns the first match or nil when nothing matches. Absence is not an error.
	Find(ctx context.Context, scope Element, query string) (Element, error)
	// FindAll returns every match in document order, empty when nothing matches.
	FindAll(ctx context.Context, scope Element, query string) ([]Element, error)

	Text(ctx context.Context, el Element) (string, error)
	// Attribute returns the attribute value and whether it was present
	Attribute(ctx context.Context, el Element, name string) (string, bool, error)
	InnerHTML(ctx context.Context, el Element) (string, error)

	Click(ctx context.Context, el Element) error
	DispatchPointer(ctx context.Context, el Element, event PointerEvent) error
	Navigate(ctx context.Context, url string) error
	Evaluate(ctx context.Context, script string, res interface{}) error

	// WaitForContexts blocks until exactly count browsing contexts are open or timeout elapses
	WaitForContexts(ctx context.Context, count int, timeout time.Duration) error
	// Contexts lists browsing context ids in the order they were opened
	Contexts(ctx context.Context) ([]string, error)
	CurrentContext() string
	SwitchContext(ctx context.Context, id string) error
	// CloseContext closes the focused browsing context. Focus is undefined until SwitchContext.
	CloseContext(ctx context.Context) error

	Location(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
}
