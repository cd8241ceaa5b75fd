// Package guard switches the process into test mode when imported for side
// effects, so entry points skip network side effects.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ASKCRAFT_TEST_MODE") == "" {
			_ = os.Setenv("ASKCRAFT_TEST_MODE", "1")
		}
	})
}
