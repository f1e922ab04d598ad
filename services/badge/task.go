package badge

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"gigbridge-platform/pkg/taskname"
)

type recomputePayload struct {
	UserID string `json:"user_id"`
}

func RegisterTaskHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.BadgeRecompute, func(ctx context.Context, t *asynq.Task) error {
		var p recomputePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}
		return svc.Recompute(ctx, p.UserID)
	})
}
