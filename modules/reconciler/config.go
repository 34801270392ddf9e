package reconciler

import "ballot-node/modules/config"

type ReconcilerConfig struct {
	// Cron spec for the sweep.
	Schedule string
	// Seconds an intent must stay pending before the sweep touches it, so
	// in-flight requests are not raced.
	GraceSeconds int
	// Hours after which confirmed intents are purged.
	RetentionHours int
}

func NewReconcilerConfig() *config.Config[ReconcilerConfig] {
	return config.New(ReconcilerConfig{
		Schedule:       "@every 1m",
		GraceSeconds:   120,
		RetentionHours: 24,
	})
}
