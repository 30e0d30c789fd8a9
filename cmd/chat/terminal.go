package main

import (
	"chat-sync/domain"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// terminal renders the engine's output on a line based console.
type terminal struct {
	mu   sync.Mutex
	out  io.Writer
	self string
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out}
}

func (t *terminal) setSelf(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.self = name
}

func (t *terminal) MessageAppended(msg domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	author := color.New(color.FgCyan, color.OpBold).Render(msg.Author)
	if msg.Author == t.self {
		author = color.New(color.FgGreen, color.OpBold).Render(msg.Author)
	}
	_, _ = fmt.Fprintf(t.out, "[%s] %s: %s\n", msg.CreatedAt.Local().Format(time.TimeOnly), author, msg.Body)
}

// ScrollToLatest is a no-op, a console always shows its last line.
func (t *terminal) ScrollToLatest(domain.RoomID) {}

func (t *terminal) RedirectHome(reason error) {
	t.printf(color.FgYellow, "Back to the room list: %v\n", reason)
}

func (t *terminal) roomCreated(room domain.Room) {
	t.printf(color.FgGray, "Room #%d %q is available\n", room.ID, room.Name)
}

func (t *terminal) info(format string, args ...any) {
	t.printf(color.FgGray, format, args...)
}

func (t *terminal) fail(format string, args ...any) {
	t.printf(color.FgRed, format, args...)
}

func (t *terminal) printf(c color.Color, format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprint(t.out, c.Sprintf(format, args...))
}

func (t *terminal) rooms(rooms []domain.Room) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(rooms) == 0 {
		_, _ = fmt.Fprintln(t.out, "No rooms yet, create one with /create <name>")
		return
	}
	table := tablewriter.NewWriter(t.out)
	table.SetHeader([]string{"ID", "Name", "Created at"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range rooms {
		table.Append([]string{strconv.Itoa(int(r.ID)), r.Name, r.CreatedAt.Local().Format(time.DateTime)})
	}
	table.Render()
}

const help = `Commands:
  /name <display name>   choose how you appear
  /rooms                 list rooms
  /create <room name>    create a room
  /join <room id>        open a room
  /leave                 close the room
  /sound                 toggle the message alert
  /quit                  exit
Anything else is sent to the open room.
`
