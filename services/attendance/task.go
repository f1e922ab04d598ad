package attendance

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"gigbridge-platform/pkg/taskname"
)

func RegisterTaskHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.AttendanceAutoClose, func(ctx context.Context, t *asynq.Task) error {
		return svc.AutoCloseAll(ctx, time.Now())
	})
}
