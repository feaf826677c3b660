package browser

import (
	"encoding/json"
	"fmt"
)

// refAttribute tags located nodes so later calls can address them from a fresh script.
// Nodes re-rendered by the page lose the tag and surface as stale.
const refAttribute = "data-quarry-ref"

// jsString renders s as a JavaScript string literal
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// scopeExpr is a JavaScript expression yielding the scope node, null when stale
func scopeExpr(ref string) string {
	if ref == "" {
		return "document"
	}
	return fmt.Sprintf("document.querySelector(%s)", jsString(fmt.Sprintf("[%s=%q]", refAttribute, ref)))
}

// withNode wraps body so it runs with `n` bound to the referenced node
func withNode(ref string, body string) string {
	return fmt.Sprintf(`(() => {
	const n = %s;
	if (!n) { throw new Error("stale element: %s"); }
	%s
})()`, scopeExpr(ref), ref, body)
}

func findAllScript(scopeRef string, query string) string {
	return fmt.Sprintf(`(() => {
	const scope = %s;
	if (!scope) { throw new Error("stale element: %s"); }
	const result = document.evaluate(%s, scope, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const refs = [];
	for (let i = 0; i < result.snapshotLength; i++) {
		const node = result.snapshotItem(i);
		if (node.nodeType !== Node.ELEMENT_NODE) { continue; }
		if (!node.hasAttribute(%s)) {
			window.__quarryRef = (window.__quarryRef || 0) + 1;
			node.setAttribute(%s, String(window.__quarryRef));
		}
		refs.push(node.getAttribute(%s));
	}
	return refs;
})()`, scopeExpr(scopeRef), scopeRef, jsString(query),
		jsString(refAttribute), jsString(refAttribute), jsString(refAttribute))
}

func textScript(ref string) string {
	return withNode(ref, `return (n.innerText || n.textContent || "").trim();`)
}

// attributeScript prefers the reflected property for href/src so relative references resolve
func attributeScript(ref string, name string) string {
	return withNode(ref, fmt.Sprintf(`const name = %s;
	if (!n.hasAttribute(name)) { return {present: false, value: ""}; }
	if ((name === "href" || name === "src") && typeof n[name] === "string") { return {present: true, value: n[name]}; }
	return {present: true, value: n.getAttribute(name)};`, jsString(name)))
}

func innerHTMLScript(ref string) string {
	return withNode(ref, `return n.innerHTML;`)
}

func clickScript(ref string) string {
	return withNode(ref, `n.scrollIntoView({block: "center"}); n.click(); return true;`)
}

func pointerScript(ref string, event string) string {
	return withNode(ref, fmt.Sprintf(`n.dispatchEvent(new MouseEvent(%s, {bubbles: true, cancelable: true, view: window})); return true;`, jsString(event)))
}

type attributeResult struct {
	Present bool   `json:"present"`
	Value   string `json:"value"`
}
