// Package reconciler sweeps the document graph for partial execution state.
// Persistence runs as several non-transactional writes, so a crash between
// the case insert, the document writes and the edge writes can leave orphan
// vertices behind. The sweep finds them and flags them for manual
// reconciliation; it never deletes or repairs anything itself.
package reconciler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"obpm/pkg/eventbus"
	"obpm/pkg/events"
	"obpm/pkg/models"
	"obpm/pkg/store"
)

type Reconciler struct {
	store  store.Store
	bus    eventbus.EventBus
	logger *slog.Logger
	cron   *cron.Cron
}

func NewReconciler(s store.Store, bus eventbus.EventBus, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  s,
		bus:    bus,
		logger: logger.With("module", "reconciler"),
	}
}

// Start schedules the sweep with the given cron expression and runs until
// Stop is called.
func (r *Reconciler) Start(ctx context.Context, cronExpr string) error {
	r.cron = cron.New()

	_, err := r.cron.AddFunc(cronExpr, func() {
		if err := r.Sweep(ctx); err != nil {
			r.logger.Error("reconciliation sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	r.logger.Info("reconciler started", "schedule", cronExpr)

	return nil
}

func (r *Reconciler) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// Sweep flags every non-Case document without an inbound hasDocument edge and
// every Case without any outbound edge.
func (r *Reconciler) Sweep(ctx context.Context) error {
	documents, err := r.store.Documents(ctx, models.CollectionDocument)
	if err != nil {
		return err
	}

	flagged := 0

	for _, doc := range documents {
		docID, _ := doc["_id"].(string)
		docKey, _ := doc["_key"].(string)
		docType, _ := doc["type"].(string)

		if docID == "" {
			continue
		}

		if docType == models.TypeCase {
			outEdges, err := r.store.OutEdges(ctx, store.EdgeHasDocument, docID)
			if err != nil {
				return err
			}

			if len(outEdges) == 0 {
				r.flag(ctx, docKey, docType, "case has no documents")

				flagged++
			}

			continue
		}

		inEdges, err := r.store.InEdges(ctx, store.EdgeHasDocument, docID)
		if err != nil {
			return err
		}

		if len(inEdges) == 0 {
			r.flag(ctx, docKey, docType, "document is not attached to any parent")

			flagged++
		}
	}

	r.logger.Info("reconciliation sweep completed", "documents", len(documents), "flagged", flagged)

	return nil
}

func (r *Reconciler) flag(ctx context.Context, docKey, docType, reason string) {
	r.logger.Warn("flagging orphan document", "document", docKey, "type", docType, "reason", reason)

	event := events.DocumentFlagged{
		BaseEvent:    events.NewBaseEvent(events.DocumentFlaggedEvent, ""),
		DocumentKey:  docKey,
		DocumentType: docType,
		Reason:       reason,
	}

	if err := r.bus.Publish(ctx, docKey, event); err != nil {
		r.logger.Error("failed to publish flag event", "document", docKey, "error", err)
	}
}
