package progress

import "context"

// Sink consumes batches of progress events. Implementations must honor ctx
// deadlines; batches for one hub arrive sequentially.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter accepts individual events. Hub satisfies it, and so does a nil
// *Hub, which discards everything.
type Emitter interface {
	Emit(evt Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

// Emit calls f(evt).
func (f EmitterFunc) Emit(evt Event) { f(evt) }
