// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address for health and metrics, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath points at the SQLite actor database.
	DBPath string `koanf:"db_path"`

	// OwnerID is the hardcoded super-actor that bypasses every rank check.
	OwnerID int64 `koanf:"owner_id"`

	// AnonymousID and ServiceID are the platform special actors that always
	// resolve to max rank (group-anonymous sender and the service account).
	AnonymousID int64 `koanf:"anonymous_id"`
	ServiceID   int64 `koanf:"service_id"`

	// WarnLimit is the violation count that triggers a timed restriction.
	WarnLimit int `koanf:"warn_limit"`

	// Flood scorer tunables.
	FloodDecayRate     float64 `koanf:"flood_decay_rate"`
	FloodMaxScore      float64 `koanf:"flood_max_score"`
	FloodWarnScore     float64 `koanf:"flood_warn_score"`
	FloodSimilarity    float64 `koanf:"flood_similarity"`
	FilterSimilarity   float64 `koanf:"filter_similarity"`

	// XP farming tunables.
	XPPerMessage     int64 `koanf:"xp_per_message"`
	XPLongBonus      int64 `koanf:"xp_long_bonus"`
	XPRevivalBonus   int64 `koanf:"xp_revival_bonus"`
	XPPerMedia       int64 `koanf:"xp_per_media"`
	XPReputation     int64 `koanf:"xp_reputation"`
	MessageCooldownS int   `koanf:"message_cooldown_s"`
	MediaCooldownS   int   `koanf:"media_cooldown_s"`
	RevivalQuietS    int   `koanf:"revival_quiet_s"`
	LongMessageLen   int   `koanf:"long_message_len"`

	// Night window: messages between the start and end hour earn multiplied
	// XP, truncated to an integer.
	NightStartHour  int     `koanf:"night_start_hour"`
	NightEndHour    int     `koanf:"night_end_hour"`
	NightMultiplier float64 `koanf:"night_multiplier"`

	// Game tunables.
	DuelMinStake int64 `koanf:"duel_min_stake"`

	// ReputationDailyCap bounds grants per actor per day.
	ReputationDailyCap int `koanf:"reputation_daily_cap"`
}

// New creates a Config with engine defaults. The numeric defaults mirror the
// behavior the community already relies on; change them through file or env
// layering rather than here.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Addr:     ":9080",
		DBPath:   "keeper.db",

		OwnerID:     0,
		AnonymousID: 1087968824,
		ServiceID:   777000,

		WarnLimit: 3,

		FloodDecayRate:   0.5,
		FloodMaxScore:    10.0,
		FloodWarnScore:   6.0,
		FloodSimilarity:  0.75,
		FilterSimilarity: 0.85,

		XPPerMessage:     5,
		XPLongBonus:      10,
		XPRevivalBonus:   50,
		XPPerMedia:       15,
		XPReputation:     150,
		MessageCooldownS: 60,
		MediaCooldownS:   600,
		RevivalQuietS:    3600,
		LongMessageLen:   50,

		NightStartHour:  2,
		NightEndHour:    7,
		NightMultiplier: 1.5,

		DuelMinStake: 10,

		ReputationDailyCap: 3,
	}
}
