package interactivity

import (
	"context"
	"sync"
)

// Collector gathers every accepted click on one message until its context ends
type Collector struct {
	messageID string
	actorID   string
	filter    func(ComponentEvent) bool
	signal    *Signal

	mu     sync.Mutex
	events []ComponentEvent
}

// NewCollector collects clicks on messageID. An empty actorID accepts anyone;
// a nil filter accepts every click.
func NewCollector(messageID, actorID string, filter func(ComponentEvent) bool) *Collector {
	return &Collector{
		messageID: messageID,
		actorID:   actorID,
		filter:    filter,
		signal:    NewSignal(),
	}
}

func (c *Collector) MessageID() string { return c.messageID }
func (c *Collector) ActorID() string   { return c.actorID }
func (c *Collector) Kind() string      { return "collector" }
func (c *Collector) Signal() *Signal   { return c.signal }

func (c *Collector) Handle(_ context.Context, evt ComponentEvent) error {
	if c.filter != nil && !c.filter(evt) {
		return nil
	}
	c.mu.Lock()
	c.events = append(c.events, evt)
	c.mu.Unlock()
	return nil
}

// Cleanup is a no-op; the message is left as is
func (c *Collector) Cleanup(context.Context) error { return nil }

// Events returns the clicks collected so far
func (c *Collector) Events() []ComponentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ComponentEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Collect gathers clicks on messageID until the configured timeout or ctx ends.
// The clicks gathered are returned even when ctx was cancelled.
func (r *Router) Collect(ctx context.Context, messageID, actorID string, filter func(ComponentEvent) bool) ([]ComponentEvent, error) {
	c := NewCollector(messageID, actorID, filter)
	err := r.Run(ctx, c)
	return c.Events(), err
}
