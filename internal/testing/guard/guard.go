// Package guard switches binaries into test mode when imported from tests,
// so main packages never dial a real ledger or Redis.
package guard

import (
	"os"
	"sync"
)

const envKey = "LEDGERFIX_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(envKey) == "" {
			_ = os.Setenv(envKey, "1")
		}
	})
}
