package diagnostics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quarry/internal/common"
)

func TestFileSink_Snapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	sink, err := NewFileSink(dir, arbor.NewLogger())
	require.NoError(t, err)

	require.NoError(t, sink.Snapshot("discussion_date.log", "<html>first</html>"))
	require.NoError(t, sink.Snapshot("discussion_date.log", "<html>second</html>"))

	data, err := os.ReadFile(filepath.Join(dir, "discussion_date.log"))
	require.NoError(t, err)
	assert.Equal(t, "<html>second</html>", string(data))
}

func TestFileSink_RejectsPaths(t *testing.T) {
	sink, err := NewFileSink(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)

	assert.Error(t, sink.Snapshot("../escape.log", "x"))
	assert.Error(t, sink.Snapshot("", "x"))
}

func TestNewSink_Disabled(t *testing.T) {
	sink, err := NewSink(common.DiagnosticsConfig{Enabled: false, Dir: t.TempDir()}, arbor.NewLogger())
	require.NoError(t, err)
	assert.Nil(t, sink)
}
