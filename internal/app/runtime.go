package app

import (
	"os"
	"sync"
)

const testModeEnv = "MERIDIAN_TEST_MODE"

// inTestMode is evaluated once; test harnesses set the env var before any
// package code runs.
var inTestMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether entrypoints should skip starting real servers
// and worker loops.
func InTestMode() bool {
	return inTestMode()
}
