package runtime

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

var _ badger.Logger = (*BadgerLogger)(nil)

func TestBadgerLogger_Levels(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	w := NewBadgerLogger(logger)

	w.Infof("Replaying file id: %d\n", 7)
	w.Debugf("hidden\n")

	out := buf.String()
	req.Contains(out, `msg="Replaying file id: 7"`)
	req.Contains(out, "component=badger")
	req.NotContains(out, "hidden")
}
