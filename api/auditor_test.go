package api_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/api"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger/store"
)

// =============================================================================
// AUDIT SWEEP LIFECYCLE
// =============================================================================

func TestAuditSweep_StopIsIdempotent(t *testing.T) {
	// GIVEN: a running sweep
	// WHEN: Stop is called twice (Stop in main plus a deferred Stop)
	// THEN: the second call is a no-op instead of a panic

	sweep := api.NewAuditSweep(store.NewTxMemory(), zerolog.Nop())
	sweep.CheckInterval = time.Hour
	sweep.Start()

	assert.NotPanics(t, func() {
		sweep.Stop()
		sweep.Stop()
	})
}

func TestAuditSweep_StopBeforeStart(t *testing.T) {
	sweep := api.NewAuditSweep(store.NewTxMemory(), zerolog.Nop())

	assert.NotPanics(t, func() { sweep.Stop() })
}
