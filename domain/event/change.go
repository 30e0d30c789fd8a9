package event

type ChangeKind int

const (
	// ChangeInsert carries a committed row in Event.
	ChangeInsert ChangeKind = iota
	// ChangeDisconnected means the feed lost its transport, Err holds the cause.
	// Inserts committed from now on may never be delivered.
	ChangeDisconnected
	// ChangeReconnected means delivery resumed; anything committed while
	// disconnected has to be recovered by a fresh fetch.
	ChangeReconnected
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeDisconnected:
		return "disconnected"
	case ChangeReconnected:
		return "reconnected"
	default:
		return "unknown"
	}
}

// Change is the unit a change feed hands to its listeners.
type Change struct {
	Kind  ChangeKind
	Event DomainEvent
	Err   error
}

func Inserted(e DomainEvent) Change { return Change{Kind: ChangeInsert, Event: e} }
