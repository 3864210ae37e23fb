package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the environment variable that sets the log level.
const LevelEnv = "DATASET_LOG_LEVEL"

// Init initializes the global logger with configuration from environment variables.
// DATASET_LOG_LEVEL controls the log level: debug, info, warn, error (default: info)
func Init() {
	zerolog.SetGlobalLevel(levelFromEnv())
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func levelFromEnv() zerolog.Level {
	switch os.Getenv(LevelEnv) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
