package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// TestModeEnv makes both binaries return before opening the ledger, Redis or
// the ops listener. Any value strconv.ParseBool accepts is honoured.
const TestModeEnv = "LEDGERFIX_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func loadTestMode() {
	enabled, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(err == nil && enabled)
}

// InTestMode reports whether main should exit without touching the ledger.
func InTestMode() bool {
	testModeOnce.Do(loadTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads LEDGERFIX_TEST_MODE, for tests that change it.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	loadTestMode()
}
