package workers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const discardRatio = 0.5

// ValueLogGCWorker reclaims badger value log space left by rewritten entries.
type ValueLogGCWorker struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewValueLogGCWorker(log *slog.Logger, db *badger.DB, interval time.Duration) *ValueLogGCWorker {
	return &ValueLogGCWorker{log: log, db: db, interval: interval}
}

func (w ValueLogGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.collect(); err != nil {
				return err
			}
		}
	}
}

// collect rewrites value log files until badger finds nothing worth rewriting.
func (w ValueLogGCWorker) collect() error {
	rewritten := 0
	for {
		err := w.db.RunValueLogGC(discardRatio)
		if stderrors.Is(err, badger.ErrNoRewrite) {
			if rewritten > 0 {
				w.log.Info("Value log collected", "files", rewritten)
			}
			return nil
		}
		if err != nil {
			return err
		}
		rewritten++
	}
}
