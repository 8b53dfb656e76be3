// Package stream maintains the long-lived subscription to the campaign event
// feed: a server-sent-events stream parsed with an explicit buffer/split
// state machine and reconnected with exponential backoff.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"reactor-watcher/internal/domain"
	"reactor-watcher/internal/observability"
)

// EventCampaignUpdated is the only frame type this subscriber dispatches.
const EventCampaignUpdated = "campaign_updated"

// Default reconnect backoff bounds.
const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

var frameDelimiter = []byte("\n\n")

// SignalHandler receives parsed campaign signals from the feed. The signalID
// is the frame's id field and may be empty.
type SignalHandler interface {
	ProcessCampaignSignal(ctx context.Context, signal domain.CampaignSignal, signalID string) error
}

// SubscriberConfig configures a Subscriber.
type SubscriberConfig struct {
	URL     string
	Handler SignalHandler
	Logger  *logrus.Logger

	// HTTPClient must not carry an overall timeout: the stream is long-lived.
	// Nil gets a client with connect-phase timeouts only.
	HTTPClient *http.Client

	// InitialBackoff and MaxBackoff bound the reconnect delay. Zero values
	// take the defaults.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Subscriber consumes the campaign event feed and forwards migration signals
// to its handler. Start begins the background loop; Stop ends it and is safe
// to call from any goroutine.
type Subscriber struct {
	url            string
	handler        SignalHandler
	client         *http.Client
	log            *logrus.Logger
	initialBackoff time.Duration
	maxBackoff     time.Duration

	started atomic.Bool
	closed  atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// attempt counts consecutive failed connections; only the run goroutine
	// touches it.
	attempt int
}

// NewSubscriber creates a subscriber for the given feed URL.
func NewSubscriber(cfg SubscriberConfig) *Subscriber {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		}
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	initial := cfg.InitialBackoff
	if initial == 0 {
		initial = DefaultInitialBackoff
	}
	max := cfg.MaxBackoff
	if max == 0 {
		max = DefaultMaxBackoff
	}
	return &Subscriber{
		url:            cfg.URL,
		handler:        cfg.Handler,
		client:         client,
		log:            log,
		initialBackoff: initial,
		maxBackoff:     max,
	}
}

// Start begins the subscription loop. Calling Start more than once is a no-op.
func (s *Subscriber) Start() {
	if s.started.Swap(true) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop prevents further reconnect attempts and unblocks the stream read. It
// does not wait for an in-flight handler call to finish; use Wait for that.
func (s *Subscriber) Stop() {
	if s.closed.Swap(true) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until the subscription loop has exited.
func (s *Subscriber) Wait() {
	s.wg.Wait()
}

func (s *Subscriber) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		if s.closed.Load() {
			return
		}

		err := s.consume(ctx)
		if s.closed.Load() || ctx.Err() != nil {
			return
		}

		delay := backoffDelay(s.attempt, s.initialBackoff, s.maxBackoff)
		s.attempt++
		observability.RecordStreamReconnect()
		s.log.WithFields(logrus.Fields{
			"delay":   delay.String(),
			"attempt": s.attempt,
			"error":   fmt.Sprint(err),
		}).Warn("Event stream disconnected, scheduling reconnect")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// consume opens the stream and dispatches frames until the connection ends.
func (s *Subscriber) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream connect failed: %s", resp.Status)
	}

	s.log.WithField("url", s.url).Info("Connected to event stream")
	s.attempt = 0
	observability.RecordStreamConnect()

	var acc []byte
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			for {
				idx := bytes.Index(acc, frameDelimiter)
				if idx < 0 {
					break
				}
				frame := string(acc[:idx])
				acc = acc[idx+len(frameDelimiter):]
				s.handleFrame(ctx, frame)
			}
		}
		if readErr != nil {
			return fmt.Errorf("read stream: %w", readErr)
		}
	}
}

// handleFrame parses and dispatches one frame. Handler and parse failures are
// logged and never escape to the connection loop.
func (s *Subscriber) handleFrame(ctx context.Context, raw string) {
	event := parseEvent(raw)
	if event == nil {
		return
	}
	observability.RecordStreamEvent(event.Event)
	if event.Event != EventCampaignUpdated {
		return
	}

	var signal domain.CampaignSignal
	if err := json.Unmarshal([]byte(event.Data), &signal); err != nil {
		s.log.WithFields(logrus.Fields{
			"event_id": event.ID,
			"error":    err.Error(),
		}).Error("Failed to parse campaign_updated payload")
		return
	}

	if err := s.handler.ProcessCampaignSignal(ctx, signal, event.ID); err != nil {
		s.log.WithFields(logrus.Fields{
			"event_id":    event.ID,
			"campaign_id": signal.CampaignID,
			"error":       err.Error(),
		}).Error("Failed to handle campaign_updated event")
	}
}

// backoffDelay returns initial * 2^attempt capped at max.
func backoffDelay(attempt int, initial, max time.Duration) time.Duration {
	delay := initial
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
