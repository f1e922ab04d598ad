package taskname

// Task type names shared by enqueuers and the sweeper worker.
const (
	EventReconcileAll = "event:reconcile_all"
	EventReconcile    = "event:reconcile"

	AttendanceAutoClose = "attendance:autoclose"

	BadgeRecompute = "badge:recompute"

	NotificationDispatch = "notification:dispatch"

	ChainMirror = "chain:mirror"
)
