package sequencer

import "github.com/dgnsrekt/scriptplay/internal/script"

// EventType identifies what happened during a run.
type EventType int

const (
	// EventStarted is sent once when a run begins.
	EventStarted EventType = iota
	// EventItemStarted is sent before an item plays.
	EventItemStarted
	// EventItemDone is sent after an item finishes.
	EventItemDone
	// EventItemFailed is sent when an item errors; the run continues.
	EventItemFailed
	// EventBackgroundStarted is sent when a clip takes the background slot.
	EventBackgroundStarted
	// EventStopped is sent when Stop ends a run.
	EventStopped
	// EventFinished is sent when a run reaches the end of its snapshot.
	EventFinished
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventItemStarted:
		return "item started"
	case EventItemDone:
		return "item done"
	case EventItemFailed:
		return "item failed"
	case EventBackgroundStarted:
		return "background started"
	case EventStopped:
		return "stopped"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event describes progress of a run. Index and Item are set for item
// events; Total is the snapshot length.
type Event struct {
	Type       EventType
	Generation uint64
	Index      int
	Total      int
	Item       script.Item
	Err        error
}
