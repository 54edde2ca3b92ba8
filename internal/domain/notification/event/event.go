package event

import "github.com/fatih/structs"

type Event interface {
	Op() string
}

type Metadata struct {
	To string `json:"to"`
}

type EventRequest struct {
	Op       string   `json:"o"`
	Data     any      `json:"d"`
	Metadata Metadata `json:"m"`
}

// New flattens the typed event into a plain map so the engine can route it
// without knowing the concrete event types.
func New(ev Event, metadata Metadata) *EventRequest {
	return &EventRequest{
		Op:       ev.Op(),
		Data:     structs.Map(ev),
		Metadata: metadata,
	}
}
