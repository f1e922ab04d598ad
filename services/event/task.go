package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"gigbridge-platform/pkg/taskname"
)

type ReconcilePayload struct {
	EventID string `json:"event_id"`
}

// NewReconcileTask targets one event; the sweep task covers the whole table.
func NewReconcileTask(eventID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcilePayload{EventID: eventID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.EventReconcile, payload), nil
}

func RegisterTaskHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.EventReconcileAll, func(ctx context.Context, t *asynq.Task) error {
		return svc.ReconcileAll(ctx, time.Now())
	})

	mux.HandleFunc(taskname.EventReconcile, func(ctx context.Context, t *asynq.Task) error {
		var payload ReconcilePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return err
		}
		return svc.ReconcileOne(ctx, payload.EventID, time.Now())
	})
}
