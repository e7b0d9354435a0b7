// Package audit records administrative actions as a fire-and-forget side
// effect. Emit never blocks the caller and never fails its operation.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"hst-backend/internal/domain"
	"hst-backend/internal/infrastructure/metrics"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionDonationSubmitted    = "donation.submitted"
	ActionDonationStatusChange = "donation.status_changed"
	ActionCertificateIssued    = "certificate.issued"
	ActionCertificateVoided    = "certificate.voided"
	ActionDonorForked          = "donor.forked"
	ActionSettingsUpdated      = "settings.updated"
)

// Event is one audit record before persistence.
type Event struct {
	Action   string
	Entity   string
	EntityID string
	Actor    string
	Payload  map[string]interface{}
	At       time.Time
}

// Publisher queues events and persists them on a background worker.
type Publisher struct {
	db      *gorm.DB
	inbox   chan Event
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPublisher(db *gorm.DB, buffer int, m *metrics.Metrics) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{db: db, inbox: make(chan Event, buffer), metrics: m}
}

// Start launches the worker. Call Close to drain and stop it.
func (p *Publisher) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for e := range p.inbox {
			p.write(e)
		}
	}()
}

// Emit queues e. When the queue is full the event is dropped and counted.
func (p *Publisher) Emit(ctx context.Context, e Event) {
	if p == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.inbox <- e:
	default:
		p.metrics.IncAuditDropped()
		log.Warn().Str("action", e.Action).Str("entity_id", e.EntityID).Msg("Audit queue full, event dropped")
	}
}

// Close stops accepting events and waits for queued ones to be written.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) write(e Event) {
	var payload datatypes.JSON
	if len(e.Payload) > 0 {
		b, err := json.Marshal(e.Payload)
		if err == nil {
			payload = datatypes.JSON(b)
		}
	}
	row := domain.AuditLog{
		Action:    e.Action,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		Payload:   payload,
		CreatedAt: e.At,
	}
	if e.Actor != "" {
		actor := e.Actor
		row.Actor = &actor
	}
	if err := p.db.Create(&row).Error; err != nil {
		log.Error().Err(err).Str("action", e.Action).Str("entity_id", e.EntityID).Msg("Audit write failed")
	}
}
