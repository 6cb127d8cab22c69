package api

import "sync"

// EventType categorizes a BroadcastEvent.
type EventType string

const (
	// EventTypeOutput carries a chunk of write() output.
	EventTypeOutput EventType = "output"
	// EventTypeStatus carries a session lifecycle transition.
	EventTypeStatus EventType = "status"
)

// BroadcastEvent is a single event fanned out to subscribed WebSocket
// clients.
type BroadcastEvent struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"sessionId"`
	Data      map[string]interface{} `json:"data"`
}

// Subscription is a client's filtered view of the event stream.
type Subscription struct {
	SessionID  string
	EventTypes map[EventType]bool
	Channel    chan BroadcastEvent
}

// Broadcaster fans out events to every subscription whose filters
// match, without letting a slow client block the producer.
type Broadcaster struct {
	mu            sync.RWMutex
	subscriptions map[*Subscription]bool
	broadcast     chan BroadcastEvent
	register      chan *Subscription
	unregister    chan *Subscription
	done          chan struct{}
}

// NewBroadcaster creates and starts a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		subscriptions: make(map[*Subscription]bool),
		broadcast:     make(chan BroadcastEvent, 256),
		register:      make(chan *Subscription),
		unregister:    make(chan *Subscription),
		done:          make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case sub := <-b.register:
			b.mu.Lock()
			b.subscriptions[sub] = true
			b.mu.Unlock()

		case sub := <-b.unregister:
			b.mu.Lock()
			if b.subscriptions[sub] {
				delete(b.subscriptions, sub)
				close(sub.Channel)
			}
			b.mu.Unlock()

		case event := <-b.broadcast:
			b.mu.RLock()
			for sub := range b.subscriptions {
				if sub.SessionID != "" && sub.SessionID != event.SessionID {
					continue
				}
				if len(sub.EventTypes) > 0 && !sub.EventTypes[event.Type] {
					continue
				}
				select {
				case sub.Channel <- event:
				default:
					// Slow client; drop rather than block the broadcaster.
				}
			}
			b.mu.RUnlock()

		case <-b.done:
			b.mu.Lock()
			for sub := range b.subscriptions {
				close(sub.Channel)
			}
			b.subscriptions = make(map[*Subscription]bool)
			b.mu.Unlock()
			return
		}
	}
}

// Subscribe registers interest in events, optionally filtered to one
// session and a set of event types (empty means all).
func (b *Broadcaster) Subscribe(sessionID string, eventTypes []EventType) *Subscription {
	m := make(map[EventType]bool, len(eventTypes))
	for _, et := range eventTypes {
		m[et] = true
	}
	sub := &Subscription{
		SessionID:  sessionID,
		EventTypes: m,
		Channel:    make(chan BroadcastEvent, 64),
	}
	b.register <- sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.unregister <- sub
}

// Broadcast queues an event for fan-out, dropping it if the internal
// buffer is saturated rather than blocking the caller.
func (b *Broadcaster) Broadcast(event BroadcastEvent) {
	select {
	case b.broadcast <- event:
	default:
	}
}

// BroadcastOutput sends a chunk of program output for a session.
func (b *Broadcaster) BroadcastOutput(sessionID, chunk string) {
	b.Broadcast(BroadcastEvent{
		Type:      EventTypeOutput,
		SessionID: sessionID,
		Data:      map[string]interface{}{"chunk": chunk},
	})
}

// BroadcastStatus sends a lifecycle transition for a session.
func (b *Broadcaster) BroadcastStatus(sessionID, status, errMsg string) {
	data := map[string]interface{}{"status": status}
	if errMsg != "" {
		data["error"] = errMsg
	}
	b.Broadcast(BroadcastEvent{
		Type:      EventTypeStatus,
		SessionID: sessionID,
		Data:      data,
	})
}

// Close shuts down the broadcaster and closes every subscription.
func (b *Broadcaster) Close() {
	close(b.done)
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
