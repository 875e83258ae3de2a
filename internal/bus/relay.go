// Package bus forwards committed auction events to NATS for consumers outside
// the coordinator process (archivers, league tooling). Delivery here is best
// effort: the in-process gateway broadcast is the authoritative stream, and a
// publish failure never blocks or fails a commit.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/draftroom/auctioneer/internal/auction"
	"github.com/draftroom/auctioneer/internal/models"
)

// Config holds NATS relay configuration.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns default relay configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "auction.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// envelope is the published message shape.
type envelope struct {
	EventID    string             `json:"event_id"`
	Type       auction.EventKind  `json:"type"`
	Version    uint64             `json:"version"`
	Timestamp  time.Time          `json:"timestamp"`
	Round      *models.Round      `json:"round,omitempty"`
	Resolution *models.Resolution `json:"resolution,omitempty"`
}

// Relay is an auction.Sink that publishes committed events to NATS. Events
// are enqueued synchronously in commit order and published by a single worker
// goroutine, so subjects observe the same ordering as sessions do.
type Relay struct {
	nc      *nats.Conn
	config  Config
	eventCh chan auction.Event
}

// NewRelay connects to NATS and prepares the relay. Run must be called for
// events to flow.
func NewRelay(config Config) (*Relay, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Relay{
		nc:      nc,
		config:  config,
		eventCh: make(chan auction.Event, 256),
	}, nil
}

// Committed implements auction.Sink. It never blocks the commit path; when
// the relay falls behind, events are dropped with a warning.
func (r *Relay) Committed(event auction.Event) {
	select {
	case r.eventCh <- event:
	default:
		log.Warn().
			Str("kind", string(event.Kind)).
			Uint64("version", event.Snapshot.Version).
			Msg("relay queue full, dropping event")
	}
}

// Run publishes queued events until the context is cancelled.
func (r *Relay) Run(ctx context.Context) {
	log.Info().Str("subject_prefix", r.config.SubjectPrefix).Msg("event relay started")

	for {
		select {
		case <-ctx.Done():
			r.nc.Drain()
			log.Info().Msg("event relay stopped")
			return
		case event := <-r.eventCh:
			r.publish(event)
		}
	}
}

func (r *Relay) publish(event auction.Event) {
	env := envelope{
		EventID:    uuid.New().String(),
		Type:       event.Kind,
		Version:    event.Snapshot.Version,
		Timestamp:  time.Now(),
		Round:      event.Round,
		Resolution: event.Resolution,
	}

	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal relay envelope")
		return
	}

	subject := fmt.Sprintf("%s.%s", r.config.SubjectPrefix, event.Kind)
	if err := r.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
