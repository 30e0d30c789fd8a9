package workers

import (
	"chat-sync/channel"
	"context"
	"log/slog"
	"time"
)

type QueueSampler interface {
	Queues() []channel.QueueStat
}

// ChannelCapacityWorker periodically reports how full the subscription queues are.
// A queue above lowCapacityThreshold percent is about to overflow, which
// costs its owner a full resync.
type ChannelCapacityWorker struct {
	log                  *slog.Logger
	sampler              QueueSampler
	metricInterval       time.Duration
	lowCapacityThreshold int
}

func NewChannelCapacityWorker(log *slog.Logger, sampler QueueSampler,
	metricInterval time.Duration, lowCapacityThreshold int) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:                  log,
		sampler:              sampler,
		metricInterval:       metricInterval,
		lowCapacityThreshold: lowCapacityThreshold,
	}
}

func (w ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping queue sampling")
			return nil
		case <-ticker.C:
			w.report(w.sampler.Queues())
		}
	}
}

// report returns the number of queues above the threshold.
func (w ChannelCapacityWorker) report(stats []channel.QueueStat) int {
	crowded := 0
	for _, s := range stats {
		if s.Capacity == 0 {
			continue
		}
		percent := s.Length * 100 / s.Capacity
		if percent >= w.lowCapacityThreshold {
			crowded++
			w.log.Warn("Subscription queue filling up",
				"subscription", s.ID, "topic", s.Topic, "length", s.Length, "capacity", s.Capacity)
			continue
		}
		w.log.Debug("Subscription queue", "subscription", s.ID, "topic", s.Topic, "length", s.Length, "capacity", s.Capacity)
	}
	return crowded
}
