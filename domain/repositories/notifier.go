package repositories

// Notifier surfaces user-visible notices from the pipeline to whatever
// view is bound (terminal, bridge client). It replaces ad hoc toasts.
type Notifier interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}
