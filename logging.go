package shardstats

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// GetLogger returns a zerolog.Logger configured to the given verbosity level string.
// If verbosity is empty or unparseable, the global logger is returned unchanged.
func GetLogger(verbosity string) zerolog.Logger {
	if verbosity == "" {
		return log.Logger
	}

	level, err := zerolog.ParseLevel(verbosity)
	if err != nil {
		return log.Logger
	}

	return log.Level(level)
}

// ShardLogger returns the given logger annotated with the shard identity.
func ShardLogger(l zerolog.Logger, id ShardID) zerolog.Logger {
	return l.With().
		Str("index", id.Index).
		Int("shard", id.Shard).
		Logger()
}
