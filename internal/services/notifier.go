package services

// Notifier receives a fire-and-forget signal after any balance or item
// mutation so the presentation layer can refresh. Delivery is best-effort
// and carries no payload; it is not part of the engine's correctness
// contract.
type Notifier interface {
	NotifyUserDataChanged(userID int)
}

// NopNotifier discards all notifications. Used in tests and CLI tooling.
type NopNotifier struct{}

func (NopNotifier) NotifyUserDataChanged(int) {}
