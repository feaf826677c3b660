package htmldoc

import (
	"strconv"
	"strings"
)

// groupSelection is a query of the form (inner)[position]rest
type groupSelection struct {
	inner    string
	last     bool
	position int // 1-based, used when last is false
	rest     string
}

// splitGroupSelection recognises a leading parenthesized group followed by a
// positional predicate. antchfx/xpath applies such a predicate to the unfiltered
// step instead of the grouped node-set, so these queries are evaluated in parts.
func splitGroupSelection(query string) (groupSelection, bool) {
	q := strings.TrimSpace(query)
	if !strings.HasPrefix(q, "(") {
		return groupSelection{}, false
	}

	closeParen := matchingClose(q, 0, '(', ')')
	if closeParen < 0 || closeParen+1 >= len(q) || q[closeParen+1] != '[' {
		return groupSelection{}, false
	}
	closeBracket := matchingClose(q, closeParen+1, '[', ']')
	if closeBracket < 0 {
		return groupSelection{}, false
	}

	sel := groupSelection{
		inner: strings.TrimSpace(q[1:closeParen]),
		rest:  strings.TrimSpace(q[closeBracket+1:]),
	}
	if sel.inner == "" {
		return groupSelection{}, false
	}
	if sel.rest != "" && !strings.HasPrefix(sel.rest, "/") {
		return groupSelection{}, false
	}

	var ok bool
	if sel.last, sel.position, ok = parsePosition(q[closeParen+2 : closeBracket]); !ok {
		return groupSelection{}, false
	}
	return sel, true
}

// stepSelection is a query whose final child step ends in a positional predicate
// that follows another predicate, such as //div[@role='dialog'][last()]
type stepSelection struct {
	base     string
	last     bool
	position int
}

// splitStepSelection recognises a trailing positional predicate on a filtered child step.
// antchfx/xpath counts last() and position over the step's unfiltered siblings there.
func splitStepSelection(query string) (stepSelection, bool) {
	q := strings.TrimSpace(query)
	if !strings.HasSuffix(q, "]") {
		return stepSelection{}, false
	}

	openBracket := matchingOpen(q, len(q)-1, '[', ']')
	if openBracket <= 0 || q[openBracket-1] != ']' {
		return stepSelection{}, false
	}

	last, position, ok := parsePosition(q[openBracket+1 : len(q)-1])
	if !ok {
		return stepSelection{}, false
	}

	base := q[:openBracket]
	step := base[lastStepStart(base):]
	if strings.Contains(step, "::") && !strings.HasPrefix(step, "child::") {
		return stepSelection{}, false
	}
	if strings.HasPrefix(step, "(") || strings.HasPrefix(step, ".") {
		return stepSelection{}, false
	}

	return stepSelection{base: base, last: last, position: position}, true
}

func parsePosition(predicate string) (last bool, position int, ok bool) {
	predicate = strings.ReplaceAll(predicate, " ", "")
	if predicate == "last()" {
		return true, 0, true
	}
	n, err := strconv.Atoi(predicate)
	if err != nil || n < 1 {
		return false, 0, false
	}
	return false, n, true
}

// lastStepStart returns the index just past the final top-level '/' in q, or 0
func lastStepStart(q string) int {
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(q); i++ {
		c := q[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case '/':
			if depth == 0 {
				start = i + 1
			}
		}
	}
	return start
}

// matchingOpen returns the index of the bracket opening the one at end, skipping quoted literals
func matchingOpen(s string, end int, open byte, close byte) int {
	depth := 0
	var quote byte
	for i := end; i >= 0; i-- {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case close:
			depth++
		case open:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchingClose returns the index of the bracket closing the one at start, skipping quoted literals
func matchingClose(s string, start int, open byte, close byte) int {
	depth := 0
	var quote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
