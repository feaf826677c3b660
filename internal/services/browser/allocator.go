// -----------------------------------------------------------------------
// Browser Allocator - Chrome process options for the extraction session
// -----------------------------------------------------------------------

package browser

import (
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/quarry/internal/common"
)

// buildAllocatorOptions creates Chrome allocator options from configuration
func buildAllocatorOptions(config common.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", config.DisableGPU),
		chromedp.Flag("no-sandbox", config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-background-timer-throttling", false),
		chromedp.Flag("disable-backgrounding-occluded-windows", false),
		chromedp.Flag("disable-renderer-backgrounding", false),

		// Development links open in new windows
		chromedp.Flag("disable-popup-blocking", true),

		chromedp.WindowSize(config.WindowWidth, config.WindowHeight),
	)

	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}

	// Reuse an authenticated profile when one is configured
	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}

	return opts
}
