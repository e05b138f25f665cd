package event

// Event is something that happened inside the orchestrator.
type Event interface {
	// EventName identifies the event, e.g. "stage.finished"
	EventName() string
	// EventType groups related events, e.g. "stage"
	EventType() string
}

type EventHandler interface {
	Handle(event Event)
}

// HandlerFunc adapts a function to an EventHandler.
type HandlerFunc func(event Event)

func (f HandlerFunc) Handle(event Event) {
	f(event)
}
