package extractor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/quarry/internal/common"
)

// ErrTooltipFormat is returned when tooltip text does not end in a recognised date
var ErrTooltipFormat = errors.New("tooltip date format not recognised")

// DateFormat is the contract for dates read from the rendered view.
//
// Hover tooltips are expected to end with a date made of exactly TooltipTokens
// whitespace-separated tokens, e.g. "Updated by Jane Doe 12 June 2023 14:32".
// The attachments grid renders dates as AttachedLayout. File names embed dates
// formatted with StampLayout.
type DateFormat struct {
	TooltipLayouts []string
	TooltipTokens  int
	AttachedLayout string
	StampLayout    string
}

// TooltipDate is the parsed date suffix of a tooltip
type TooltipDate struct {
	Display string // The trailing tokens as rendered
	Time    time.Time
}

// NewDateFormat builds the contract from configuration
func NewDateFormat(config common.ExtractionConfig) DateFormat {
	return DateFormat{
		TooltipLayouts: config.TooltipDateLayouts,
		TooltipTokens:  config.TooltipDateTokens,
		AttachedLayout: config.AttachedDateLayout,
		StampLayout:    config.StampLayout,
	}
}

// ParseTooltip extracts the trailing date of a tooltip. Display is populated whenever
// enough tokens exist, even if parsing fails.
func (f DateFormat) ParseTooltip(text string) (TooltipDate, error) {
	fields := strings.Fields(text)
	if len(fields) < f.TooltipTokens {
		return TooltipDate{}, fmt.Errorf("%w: %q has %d tokens, want at least %d",
			ErrTooltipFormat, text, len(fields), f.TooltipTokens)
	}

	display := strings.Join(fields[len(fields)-f.TooltipTokens:], " ")
	for _, layout := range f.TooltipLayouts {
		if t, err := time.Parse(layout, display); err == nil {
			return TooltipDate{Display: display, Time: t}, nil
		}
	}

	return TooltipDate{Display: display}, fmt.Errorf("%w: %q matches none of %q",
		ErrTooltipFormat, display, f.TooltipLayouts)
}

// ParseAttached parses a date cell of the attachments grid
func (f DateFormat) ParseAttached(text string) (time.Time, error) {
	t, err := time.Parse(f.AttachedLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, fmt.Errorf("attachment date %q does not match %q: %w", text, f.AttachedLayout, err)
	}
	return t, nil
}

// Stamp renders t for use in file names; the zero time renders empty
func (f DateFormat) Stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(f.StampLayout)
}
