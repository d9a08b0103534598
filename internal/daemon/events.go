package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"shelf/internal/api"
	"shelf/internal/journal"
	"shelf/internal/logging"
	"shelf/internal/toolrunner"
	"shelf/internal/wschannel"
)

const (
	eventQueueDepth  = 32
	eventSendTimeout = 2 * time.Second
)

// eventHub fans invocation records out to websocket subscribers from a
// dedicated goroutine. Record never blocks the invoking pool: the event is
// queued, and a full queue drops the event rather than stalling the runner.
type eventHub struct {
	logger *slog.Logger
	events chan []byte
	done   chan struct{}

	closeOnce sync.Once

	mu   sync.Mutex
	subs map[*wschannel.Channel]struct{}
}

func newEventHub(logger *slog.Logger) *eventHub {
	h := &eventHub{
		logger: logging.NewComponentLogger(logger, "events"),
		events: make(chan []byte, eventQueueDepth),
		done:   make(chan struct{}),
		subs:   make(map[*wschannel.Channel]struct{}),
	}
	go h.broadcastLoop()
	return h
}

// Record implements toolrunner.Recorder by queueing the invocation for
// broadcast.
func (h *eventHub) Record(ctx context.Context, rec toolrunner.Record) error {
	event := api.InvocationEvent{
		Type:       "invocation",
		Class:      string(rec.Class),
		Binary:     rec.Binary,
		State:      string(rec.State),
		ExitCode:   rec.ExitCode,
		DurationMS: rec.Duration.Milliseconds(),
		CacheKey:   rec.CacheKey,
		StartedAt:  rec.StartedAt.UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to encode event", logging.Error(err))
		return nil
	}

	select {
	case h.events <- payload:
	case <-h.done:
	default:
		h.logger.Debug("event queue full, dropping invocation event")
	}
	return nil
}

func (h *eventHub) broadcastLoop() {
	for {
		select {
		case payload := <-h.events:
			h.broadcast(payload)
		case <-h.done:
			return
		}
	}
}

func (h *eventHub) broadcast(payload []byte) {
	h.mu.Lock()
	channels := make([]*wschannel.Channel, 0, len(h.subs))
	for ch := range h.subs {
		channels = append(channels, ch)
	}
	h.mu.Unlock()

	for _, ch := range channels {
		ctx, cancel := context.WithTimeout(context.Background(), eventSendTimeout)
		err := ch.Send(ctx, payload)
		cancel()
		if err != nil {
			h.logger.Debug("dropping slow event subscriber", logging.Error(err))
			h.unsubscribe(ch)
			_ = ch.Close()
		}
	}
}

func (h *eventHub) subscribe(ch *wschannel.Channel) {
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
}

func (h *eventHub) unsubscribe(ch *wschannel.Channel) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// Close stops the broadcast loop and drops all subscribers.
func (h *eventHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	channels := make([]*wschannel.Channel, 0, len(h.subs))
	for ch := range h.subs {
		channels = append(channels, ch)
	}
	h.subs = make(map[*wschannel.Channel]struct{})
	h.mu.Unlock()

	for _, ch := range channels {
		_ = ch.Close()
	}
}

// serveEvents registers the websocket connection with the hub and holds it
// open until the client goes away.
func (h *eventHub) serveEvents(ws *websocket.Conn) {
	ch := wschannel.NewFromWebsocket(ws, eventQueueDepth, h.logger)
	h.subscribe(ch)
	defer func() {
		h.unsubscribe(ch)
		_ = ch.Close()
	}()
	<-ws.Request().Context().Done()
}

// teeRecorder persists records to the journal and broadcasts them.
type teeRecorder struct {
	store *journal.Store
	hub   *eventHub
}

func (t teeRecorder) Record(ctx context.Context, rec toolrunner.Record) error {
	_ = t.hub.Record(ctx, rec)
	return t.store.Record(ctx, rec)
}
