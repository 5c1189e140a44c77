package vmemgo

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFields(t *testing.T) {
	t.Run("WithHelpers", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))

		logger.WithMark("weights").WithStream(DefaultStream()).WithHandle(7).Info("hello")

		out := buf.String()
		assert.Contains(t, out, "mark=weights")
		assert.Contains(t, out, "stream=default(0)")
		assert.Contains(t, out, "handle=7")
	})

	t.Run("ScopeEventsCarryMarkAndStream", func(t *testing.T) {
		var buf bytes.Buffer
		rt, err := New(WithLogger(NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))))
		require.NoError(t, err)

		s, err := rt.OpenScope("weights", BackedNone)
		require.NoError(t, err)
		require.NoError(t, s.Close())

		out := buf.String()
		assert.Contains(t, out, "scope opened")
		assert.Contains(t, out, "scope closed")
		assert.Contains(t, out, "mark=weights")
		assert.Contains(t, out, "stream=default(0)")
	})
}
