package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clinic-gatekeeper/internal/event"
	"clinic-gatekeeper/internal/model"
	"clinic-gatekeeper/internal/repository"
	"clinic-gatekeeper/pkg/apierror"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
	auditWriteTimeout = 5 * time.Second
)

// AuditService persists authentication events from the bus and serves the
// audit history.
type AuditService struct {
	store repository.AuditStore
	bus   event.Bus
}

func NewAuditService(store repository.AuditStore, bus event.Bus) *AuditService {
	return &AuditService{store: store, bus: bus}
}

// Start subscribes before returning, so events published afterwards are not
// missed, and consumes in the background. The returned stop func
// unsubscribes, lets the consumer persist whatever is still buffered, and
// waits for it to exit. Writes never inherit cancellation from ctx.
func (s *AuditService) Start(ctx context.Context) (stop func()) {
	events, unsubscribe := s.bus.Subscribe()
	writeCtx := context.WithoutCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for e := range events {
			s.record(writeCtx, e)
		}
	}()

	return func() {
		unsubscribe()
		<-done
	}
}

func (s *AuditService) record(ctx context.Context, e event.Event) {
	ctx, cancel := context.WithTimeout(ctx, auditWriteTimeout)
	defer cancel()

	entry := model.AuditEntry{
		ID:         e.ID,
		Action:     string(e.Type),
		OccurredAt: e.OccurredAt,
		ActorID:    e.ActorID,
		ActorName:  e.ActorName,
		IP:         e.IP,
		Path:       e.Path,
		Detail:     e.Detail,
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		slog.Error("audit entry not persisted", "error", err, "event_id", e.ID, "action", e.Type)
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = defaultAuditLimit
	}
	if query.Limit > maxAuditLimit {
		query.Limit = maxAuditLimit
	}

	from, err := parseOptionalAuditTime(query.From)
	if err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'from' datetime format", query.From)
	}
	to, err := parseOptionalAuditTime(query.To)
	if err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'to' datetime format", query.To)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, model.Meta{}, apierror.BadRequest("'to' must not be before 'from'", "")
	}

	items, total, err := s.store.Query(ctx, query)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}

	return items, model.NewMeta(query.Page, query.Limit, total), nil
}

func parseOptionalAuditTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}

	value, err := time.Parse(time.RFC3339Nano, trimmed)
	if err != nil {
		return time.Time{}, err
	}
	return value.UTC(), nil
}
