package app

import (
	"os"
	"sync"
)

const testModeEnv = "ASKCRAFT_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether entry points should skip runtime side effects.
// The flag is read once per process.
func InTestMode() bool {
	return testMode()
}
