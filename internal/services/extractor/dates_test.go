package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateFormat_ParseTooltip(t *testing.T) {
	format := NewDateFormat(testConfig())

	parsed, err := format.ParseTooltip("Updated by Jane Doe 12 June 2023 14:32")
	require.NoError(t, err)
	assert.Equal(t, "12 June 2023 14:32", parsed.Display)
	assert.Equal(t, time.Date(2023, time.June, 12, 14, 32, 0, 0, time.UTC), parsed.Time)
	assert.Equal(t, "2023-06-12T14:32", format.Stamp(parsed.Time))

	parsed, err = format.ParseTooltip("Jane Doe commented  3 Feb 2024 09:05")
	require.NoError(t, err)
	assert.Equal(t, "3 Feb 2024 09:05", parsed.Display)
	assert.Equal(t, "2024-02-03T09:05", format.Stamp(parsed.Time))
}

func TestDateFormat_ParseTooltipDrift(t *testing.T) {
	format := NewDateFormat(testConfig())

	_, err := format.ParseTooltip("Updated yesterday")
	require.ErrorIs(t, err, ErrTooltipFormat)

	parsed, err := format.ParseTooltip("Updated by Jane Doe on Monday")
	require.ErrorIs(t, err, ErrTooltipFormat)
	assert.Equal(t, "Jane Doe on Monday", parsed.Display, "trailing tokens kept for display")
	assert.True(t, parsed.Time.IsZero())
}

func TestDateFormat_ParseAttached(t *testing.T) {
	format := NewDateFormat(testConfig())

	attached, err := format.ParseAttached(" 01/02/2023 10:00 ")
	require.NoError(t, err)
	assert.Equal(t, "2023-02-01T10:00", format.Stamp(attached))

	_, err = format.ParseAttached("yesterday")
	assert.Error(t, err)

	assert.Equal(t, "", format.Stamp(time.Time{}))
}
