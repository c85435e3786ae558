package testlog

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Start routes log output through the test harness so it interleaves with
// t.Log lines and only prints on failure or -v. The returned logger is also
// installed globally for the duration of the test.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	prev := log.Logger
	log.Logger = logger
	t.Cleanup(func() { log.Logger = prev })
	return logger
}
