package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestFixedWindow_FirstRequestOpensWindow(t *testing.T) {
	next, write, dec := FixedWindow(Record{}, false, 10, 15*time.Minute, t0)

	require.True(t, write)
	assert.Equal(t, 1, next.Count)
	assert.Equal(t, t0.Add(15*time.Minute), next.ResetAt)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 10, dec.Limit)
	assert.Equal(t, 9, dec.Remaining)
	assert.Zero(t, dec.RetryAfter)
}

func TestFixedWindow_RejectsAfterMaxWithoutMutating(t *testing.T) {
	rec := Record{}
	found := false
	now := t0
	for i := 1; i <= 3; i++ {
		var dec Decision
		var write bool
		rec, write, dec = FixedWindow(rec, found, 3, time.Minute, now)
		require.True(t, write)
		require.True(t, dec.Allowed, "request %d", i)
		found = true
		now = now.Add(time.Second)
	}
	assert.Equal(t, 3, rec.Count)

	next, write, dec := FixedWindow(rec, true, 3, time.Minute, now)
	assert.False(t, write)
	assert.False(t, dec.Allowed)
	assert.Equal(t, 0, dec.Remaining)
	assert.Equal(t, rec, next)
	// janela aberta em t0, bloqueio em t0+3s => faltam 57s
	assert.Equal(t, 57*time.Second, dec.RetryAfter)
}

func TestFixedWindow_ResetsOnlyAfterResetAt(t *testing.T) {
	rec := Record{Count: 5, ResetAt: t0}

	_, _, dec := FixedWindow(rec, true, 5, time.Minute, t0)
	assert.False(t, dec.Allowed, "now == resetAt ainda é a mesma janela")

	next, write, dec := FixedWindow(rec, true, 5, time.Minute, t0.Add(time.Millisecond))
	require.True(t, write)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 1, next.Count)
	assert.Equal(t, t0.Add(time.Millisecond+time.Minute), next.ResetAt)
}

func TestRetryAfter_RoundsUpAndHasFloor(t *testing.T) {
	assert.Equal(t, 2*time.Second, RetryAfter(t0.Add(1500*time.Millisecond), t0))
	assert.Equal(t, 1*time.Second, RetryAfter(t0, t0))
	assert.Equal(t, 900*time.Second, RetryAfter(t0.Add(15*time.Minute), t0))
}

func TestKey_StringKeepsIPAndPath(t *testing.T) {
	assert.Equal(t, "10.0.0.1:/api/x", Key{IP: "10.0.0.1", Path: "/api/x"}.String())
	assert.NotEqual(t, Key{IP: "a", Path: "/p"}, Key{IP: "a", Path: "/q"})
}
