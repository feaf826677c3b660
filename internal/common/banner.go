package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner unless stdout carries the JSON result
func PrintBanner(version string, quiet bool) {
	if quiet {
		return
	}
	banner.Print("Quarry", version)
}
