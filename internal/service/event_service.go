package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const eventBufferSize = 16

// ReportEvent is broadcast whenever a report changes state. Clients use it
// to refresh open report views without polling.
type ReportEvent struct {
	Type       string    `json:"type"`
	ReportID   uuid.UUID `json:"report_id"`
	TemplateID uuid.UUID `json:"template_id"`
	AuthorID   string    `json:"author_id"`
	Status     string    `json:"status"`
	SentAt     time.Time `json:"sent_at"`
}

// Report event types. Each becomes the final token of the NATS subject,
// e.g. labreport.report.submitted.
const (
	EventReportSubmitted   = "submitted"
	EventReportUnsubmitted = "unsubmitted"
	EventReportGraded      = "graded"
	EventReportSaved       = "saved"
)

// EventService fans report lifecycle events out to local subscribers and,
// when NATS is configured, to the other API nodes.
type EventService interface {
	Publish(ctx context.Context, event ReportEvent)
	Subscribe(templateID uuid.UUID) (<-chan ReportEvent, func())
	Start(ctx context.Context)
}

type eventService struct {
	nats    *nats.Conn
	subject string
	logger  zerolog.Logger
	broker  *eventBroker
	nodeID  string
	now     func() time.Time
}

type eventEnvelope struct {
	Source string      `json:"source"`
	Event  ReportEvent `json:"event"`
}

type eventBroker struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan ReportEvent]struct{}
}

// NewEventService constructs an event service. A nil NATS connection keeps
// the fan-out local to this node.
func NewEventService(natsConn *nats.Conn, subject string, logger zerolog.Logger) EventService {
	return &eventService{
		nats:    natsConn,
		subject: subject,
		logger:  logger.With().Str("component", "event_service").Logger(),
		broker: &eventBroker{
			subscribers: make(map[uuid.UUID]map[chan ReportEvent]struct{}),
		},
		nodeID: uuid.NewString(),
		now:    time.Now,
	}
}

// Start begins consuming cross-node events. Safe to call with no NATS.
func (s *eventService) Start(ctx context.Context) {
	if s.nats != nil && s.subject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *eventService) Publish(_ context.Context, event ReportEvent) {
	if event.SentAt.IsZero() {
		event.SentAt = s.now().UTC()
	}

	s.broker.dispatch(event)

	if s.nats == nil || s.subject == "" {
		return
	}

	payload, err := json.Marshal(eventEnvelope{Source: s.nodeID, Event: event})
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal report event")
		return
	}
	subject := s.subject + "." + event.Type
	if err := s.nats.Publish(subject, payload); err != nil {
		s.logger.Error().Err(err).Str("subject", subject).Msg("publish report event")
	}
}

func (s *eventService) Subscribe(templateID uuid.UUID) (<-chan ReportEvent, func()) {
	ch := make(chan ReportEvent, eventBufferSize)

	s.broker.mu.Lock()
	set, ok := s.broker.subscribers[templateID]
	if !ok {
		set = make(map[chan ReportEvent]struct{})
		s.broker.subscribers[templateID] = set
	}
	set[ch] = struct{}{}
	s.broker.mu.Unlock()

	cancel := func() {
		s.broker.mu.Lock()
		if set, ok := s.broker.subscribers[templateID]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(s.broker.subscribers, templateID)
			}
		}
		s.broker.mu.Unlock()
	}

	return ch, cancel
}

func (s *eventService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.subject+".*", func(msg *nats.Msg) {
		var envelope eventEnvelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			s.logger.Warn().Err(err).Msg("decode report event")
			return
		}
		if envelope.Source == s.nodeID {
			return
		}
		s.broker.dispatch(envelope.Event)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("subject", s.subject).Msg("subscribe report events")
		return
	}

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		s.logger.Warn().Err(err).Msg("unsubscribe report events")
	}
}

// dispatch delivers to every subscriber of the event's template, dropping
// the event for subscribers whose buffer is full.
func (b *eventBroker) dispatch(event ReportEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[event.TemplateID] {
		select {
		case ch <- event:
		default:
		}
	}
}
