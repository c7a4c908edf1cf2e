package api

import (
	"sync"

	"fleetplan/internal/metrics"
)

// Run event types.
const (
	EventRunStarted  = "run.started"
	EventRunImproved = "run.improved"
	EventRunFinished = "run.finished"
	EventRunFailed   = "run.failed"
)

type RunEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// EventBroker fans run events out to subscribers of one scenario.
type EventBroker interface {
	Subscribe(scenarioID string) chan RunEvent
	Unsubscribe(scenarioID string, ch chan RunEvent)
	Publish(scenarioID string, evt RunEvent)
	Close() error
}

// Broker is the in-process EventBroker. Slow subscribers miss events
// rather than stall the publisher.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan RunEvent]struct{} // scenarioId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan RunEvent]struct{}{}}
}

func (b *Broker) Subscribe(scenarioID string) chan RunEvent {
	ch := make(chan RunEvent, 8)
	b.mu.Lock()
	if b.subs[scenarioID] == nil {
		b.subs[scenarioID] = map[chan RunEvent]struct{}{}
	}
	b.subs[scenarioID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(scenarioID string, ch chan RunEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[scenarioID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, scenarioID)
	}
	close(ch)
}

func (b *Broker) Publish(scenarioID string, evt RunEvent) {
	metrics.RunEvents.WithLabelValues(evt.Type).Inc()
	b.mu.Lock()
	for ch := range b.subs[scenarioID] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}

// Subscribers reports how many channels listen on a scenario.
func (b *Broker) Subscribers(scenarioID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[scenarioID])
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, m := range b.subs {
		for ch := range m {
			close(ch)
		}
		delete(b.subs, id)
	}
	return nil
}
