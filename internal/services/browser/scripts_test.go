package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/quarry/internal/common"
)

func TestScopeExpr(t *testing.T) {
	assert.Equal(t, "document", scopeExpr(""))
	assert.Equal(t, `document.querySelector("[data-quarry-ref=\"12\"]")`, scopeExpr("12"))
}

func TestFindAllScript_EscapesQuery(t *testing.T) {
	script := findAllScript("", `//p[contains(text(), "Updated by")]`)

	assert.Contains(t, script, `document.evaluate("//p[contains(text(), \"Updated by\")]", scope,`)
	assert.Contains(t, script, "const scope = document;")
	assert.Contains(t, script, `setAttribute("data-quarry-ref"`)
}

func TestPointerScript(t *testing.T) {
	script := pointerScript("3", "mouseover")

	assert.Contains(t, script, `new MouseEvent("mouseover"`)
	assert.Contains(t, script, `stale element: 3`)
}

func TestBuildAllocatorOptions(t *testing.T) {
	config := common.NewDefaultConfig().Browser
	base := len(buildAllocatorOptions(config))

	config.UserDataDir = "/home/user/.config/chrome-profile"
	config.UserAgent = ""
	assert.Equal(t, base, len(buildAllocatorOptions(config)), "profile replaces user agent slot")

	config.UserAgent = "quarry-test"
	assert.Equal(t, base+1, len(buildAllocatorOptions(config)))
}
