package constants

import "time"

const (
	PlayerRefreshTTL = 5 * time.Minute
)

const (
	ExternalAPITimeout    = 10 * time.Second
	EffectLookupTimeout   = 5 * time.Second
	DatabaseTimeout       = 5 * time.Second
	RequestTimeout        = 30 * time.Second
	BackgroundTaskTimeout = 2 * time.Minute
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultWorkerCount     = 4
	DefaultWorkerQueueSize = 64
	MaxSnapshotBytes       = 4 << 20
	RefreshHistoryLimit    = 20
)
