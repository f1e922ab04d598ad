package notification

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/task"
	"gigbridge-platform/pkg/taskname"
)

type Payload struct {
	UserID      string `json:"user_id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	ReferenceID string `json:"reference_id"`
}

func NewDispatchTask(p Payload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.NotificationDispatch, payload), nil
}

// Dispatch fans a notification out through the job queue. Fire-and-forget:
// delivery trouble never fails the operation that produced the notification.
func Dispatch(enq task.Enqueuer, p Payload) {
	t, err := NewDispatchTask(p)
	if err != nil {
		zap.L().Warn("failed to build notification task", zap.Error(err))
		return
	}
	if _, err := enq.Enqueue(t, asynq.Queue("low")); err != nil {
		zap.L().Warn("failed to enqueue notification", zap.String("kind", p.Kind), zap.Error(err))
	}
}

func RegisterTaskHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.NotificationDispatch, func(ctx context.Context, t *asynq.Task) error {
		var p Payload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}
		_, err := svc.Create(ctx, p)
		return err
	})
}
