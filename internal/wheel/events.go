package wheel

// EventKind names an engine event.
type EventKind string

const (
	EventSpinStarted   EventKind = "wheel.spin_started"
	EventBallLaunched  EventKind = "ball.launched"
	EventBallDropped   EventKind = "ball.dropped"
	EventWheelStopped  EventKind = "wheel.stopped"
	EventRoundComplete EventKind = "round.complete"
)

// Drop describes the ball leaving the bumper.
type Drop struct {
	Round     uint64  `json:"round"`
	Rotations float64 `json:"rotations"`
	Velocity  float64 `json:"velocity"`
	Forced    bool    `json:"forced"`
	Elapsed   float64 `json:"elapsed"`
}

// RoundResult is the single authoritative outcome of a round. It is a value;
// copies handed to subscribers cannot alter the engine.
// Forced is set when the safety timeout froze the round.
type RoundResult struct {
	Round              uint64  `json:"round"`
	WinningNumber      int     `json:"winning_number"`
	PocketIndex        int     `json:"pocket_index"`
	Color              Color   `json:"color"`
	Forced             bool    `json:"forced"`
	Elapsed            float64 `json:"elapsed"`
	Ticks              uint64  `json:"ticks"`
	BumperRotations    float64 `json:"bumper_rotations"`
	RotationsAfterDrop float64 `json:"rotations_after_drop"`
}

// Event is published synchronously to subscribers. Drop is set for
// EventBallDropped and Result for EventRoundComplete.
type Event struct {
	Kind   EventKind    `json:"kind"`
	Round  uint64       `json:"round"`
	Tick   uint64       `json:"tick"`
	Drop   *Drop        `json:"drop,omitempty"`
	Result *RoundResult `json:"result,omitempty"`
}

// Handler receives engine events.
type Handler func(Event)

// Bus fans events out to handlers in subscription order. It is owned by one
// engine and used from the engine's goroutine only.
type Bus struct {
	handlers map[EventKind][]Handler
	all      []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventKind][]Handler)}
}

// Subscribe registers h for one kind of event.
func (b *Bus) Subscribe(kind EventKind, h Handler) {
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.all = append(b.all, h)
}

func (b *Bus) publish(ev Event) {
	for _, h := range b.handlers[ev.Kind] {
		h(ev)
	}
	for _, h := range b.all {
		h(ev)
	}
}
