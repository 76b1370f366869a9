package tracelog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandlerHandle(t *testing.T) {
	bufWo := bytes.NewBuffer(nil)
	bufWe := bytes.NewBuffer(nil)

	h := &Handler{
		We:  &lockedWriter{w: bufWe},
		Wo:  &lockedWriter{w: bufWo},
		Lvl: slog.LevelDebug,
		Tag: "WRY",
		Goa: make([]groupOrAttrs, 0),
	}

	record := slog.Record{
		Time:    time.Date(2024, 6, 26, 0, 0, 0, 0, time.UTC),
		Message: "admitted component",
		Level:   slog.LevelDebug,
	}
	record.Add("members", 3)
	record.Add("duration", 2*time.Millisecond)
	record.Add(slog.Group("canon", slog.String("handler", "ringHandler")))

	require.NoError(t, h.Handle(context.Background(), record))
	record.Level = slog.LevelInfo
	require.NoError(t, h.Handle(context.Background(), record))
	record.Level = slog.LevelWarn
	require.NoError(t, h.Handle(context.Background(), record))
	record.Level = slog.LevelError
	record.Add("error", "boom")
	require.NoError(t, h.Handle(context.Background(), record))

	require.NotZero(t, bufWo.Len())
	require.NotZero(t, bufWe.Len())
}

func TestHandlerWithAttrsAndGroup(t *testing.T) {
	h := DefaultHandler.WithGroup("canon").WithAttrs([]slog.Attr{slog.Int("known", 4)})
	require.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}
