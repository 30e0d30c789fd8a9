package notification

import (
	"chat-sync/errors"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// SilentPlayer is for targets without an autoplay restriction or without audio.
// Its unlock always succeeds and playing does nothing.
type SilentPlayer struct{}

func (SilentPlayer) Prime(context.Context) error { return nil }

func (SilentPlayer) Play(context.Context) error { return nil }

const bell = "\a"

// BellPlayer rings the terminal bell.
// Unlocking fails when the output is not an interactive terminal.
type BellPlayer struct {
	mu  sync.Mutex
	out io.Writer
	fd  uintptr
}

func NewBellPlayer(out *os.File) *BellPlayer {
	return &BellPlayer{out: out, fd: out.Fd()}
}

func (p *BellPlayer) Prime(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !isatty.IsTerminal(p.fd) && !isatty.IsCygwinTerminal(p.fd) {
		return fmt.Errorf("%w: output is not a terminal", errors.ErrAudioUnavailable)
	}
	// Trial write of an empty payload, the bell itself stays silent until a message arrives
	return p.write("")
}

func (p *BellPlayer) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.write(bell)
}

func (p *BellPlayer) write(s string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.out, s)
	return err
}
