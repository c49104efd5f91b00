package dedup

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestAdmit_FirstSeen(t *testing.T) {
	f := New(time.Minute, 10)

	assert.True(t, f.Admit("a"))
	assert.False(t, f.Admit("a"))
	assert.True(t, f.Admit("b"))
}

func TestAdmit_EmptyIDAlwaysAdmitted(t *testing.T) {
	f := New(time.Minute, 10)

	assert.True(t, f.Admit(""))
	assert.True(t, f.Admit(""))
}

func TestAdmit_ReadmitsAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := NewWithClock(time.Minute, 10, clock)

	assert.True(t, f.Admit("a"))
	clock.Advance(30 * time.Second)
	assert.False(t, f.Admit("a"))

	clock.Advance(31 * time.Second)
	assert.True(t, f.Admit("a"))
}

func TestAdmit_EvictsExpiredWhenOverCap(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := NewWithClock(time.Minute, 2, clock)

	assert.True(t, f.Admit("a"))
	assert.True(t, f.Admit("b"))

	// Let both expire, then push past the cap; expired entries get swept.
	clock.Advance(2 * time.Minute)
	assert.True(t, f.Admit("c"))
	assert.LessOrEqual(t, len(f.seen), 2)
	_, kept := f.seen["c"]
	assert.True(t, kept)
}
