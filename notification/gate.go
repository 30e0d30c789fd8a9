// Package notification decides when an incoming message deserves a local alert.
package notification

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ShouldNotify is true for messages written by someone else while alerts are enabled.
func ShouldNotify(msg domain.Message, selfAuthor string, state domain.NotificationState) bool {
	return msg.Author != selfAuthor && state.Enabled
}

// Gate guards an alert player that needs an explicit unlock before first use.
type Gate struct {
	mu     sync.Mutex
	log    *slog.Logger
	player contract.IPlayer
	state  domain.NotificationState
}

func NewGate(log *slog.Logger, player contract.IPlayer) *Gate {
	return &Gate{log: log, player: player}
}

func (g *Gate) State() domain.NotificationState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Prime unlocks the player. It must run from a direct user interaction.
// A failure leaves alerts disabled and is reported wrapped in errors.ErrAudioUnavailable,
// which callers only need to display.
func (g *Gate) Prime(ctx context.Context) (bool, error) {
	g.mu.Lock()
	if g.state.Primed {
		// Already unlocked once, re-enabling does not need a new trial playback
		g.state.Enabled = true
		g.mu.Unlock()
		return true, nil
	}
	g.mu.Unlock()

	err := g.player.Prime(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.state.Enabled = false
		g.log.Info("Audio initialization failed", "error", err)
		return false, fmt.Errorf("%w: %v", errors.ErrAudioUnavailable, err)
	}
	g.state = domain.NotificationState{Enabled: true, Primed: true}
	return true, nil
}

// Notify replays the alert from the start.
// It never plays while disabled, and disables alerts when the playback fails
// so that the enable action is offered again.
func (g *Gate) Notify(ctx context.Context) bool {
	g.mu.Lock()
	enabled := g.state.Enabled
	g.mu.Unlock()
	if !enabled {
		return false
	}

	if err := g.player.Play(ctx); err != nil {
		g.mu.Lock()
		g.state.Enabled = false
		g.mu.Unlock()
		g.log.Error("Error playing sound", "error", err)
		return false
	}
	return true
}

// Consider plays the alert for msg when ShouldNotify allows it.
func (g *Gate) Consider(ctx context.Context, msg domain.Message, selfAuthor string) bool {
	if !ShouldNotify(msg, selfAuthor, g.State()) {
		return false
	}
	return g.Notify(ctx)
}

// Disable mutes alerts. The player stays unlocked.
func (g *Gate) Disable() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.Enabled = false
}
