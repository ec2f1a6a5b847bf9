package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 5 * time.Minute
)

const (
	DefaultQueueMinDelay     = 120 * time.Millisecond
	DefaultRetryBackoff      = 1500 * time.Millisecond
	DefaultMaxRetries        = 3
	DefaultAppRateLimit      = "100/2m"
	DefaultAccountCluster    = "europe"
	DefaultAccountParallel   = 1
	DefaultMatchCountCeiling = 2000
	MatchPageSize            = 100
)

const (
	DefaultRegion     = "euw1"
	HoursPerMatch     = 0.5
	HoursPerLevel     = 7.5
	MockPUUID         = "MOCK-PUUID"
	APIKeyPrefix      = "RGAPI-"
	ChampionCacheTTL  = 24 * time.Hour
	ErrorBodyMaxBytes = 2048
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	SummaryTopChampions = 5
)
