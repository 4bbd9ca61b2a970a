package config

import "time"

// SessionConfig controls where working seating sessions live and for how
// long. Sessions are stored under "<Prefix>:<ownerID>:<sessionID>" and expire
// TTL after their last write.
type SessionConfig struct {
	TTL    time.Duration
	Prefix string
	// MaxPerOwner caps how many live sessions one teacher may hold; 0 means
	// unlimited.
	MaxPerOwner int
}

// LoadSessionConfig reads SESSION_TTL, SESSION_PREFIX and SESSION_MAX_PER_OWNER.
func LoadSessionConfig() SessionConfig {
	cfg := SessionConfig{
		TTL:         envDur("SESSION_TTL", 12*time.Hour),
		Prefix:      envStr("SESSION_PREFIX", "seating:session"),
		MaxPerOwner: envInt("SESSION_MAX_PER_OWNER", 20),
	}
	if cfg.TTL < time.Minute {
		cfg.TTL = time.Minute
	}
	if cfg.MaxPerOwner < 0 {
		cfg.MaxPerOwner = 0
	}
	return cfg
}
