package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lockFixture = `package main

import "sync"

var mu sync.Mutex
var counter int

func locked() {
	mu.Lock()
	counter = 1
	mu.Unlock()
	counter = 2
}
`

func TestIsSynchronizedLockWindow(t *testing.T) {
	tree, content := parseSource(t, lockFixture)
	syncFuncs := CollectSyncFuncs(tree, content)

	assert.True(t, IsSynchronized(tree, rangeOf(t, lockFixture, "counter", 2), content, syncFuncs),
		"write between Lock and Unlock is covered")
	assert.False(t, IsSynchronized(tree, rangeOf(t, lockFixture, "counter", 3), content, syncFuncs),
		"write after Unlock is not covered")
}

func TestIsSynchronizedDeferredUnlock(t *testing.T) {
	src := `package main

import "sync"

var mu sync.Mutex
var counter int

func deferred() {
	mu.Lock()
	defer mu.Unlock()
	counter = 3
}
`
	tree, content := parseSource(t, src)
	syncFuncs := CollectSyncFuncs(tree, content)

	assert.True(t, IsSynchronized(tree, rangeOf(t, src, "counter", 2), content, syncFuncs),
		"a deferred unlock releases at function exit, so the lock is still held")
}

func TestIsSynchronizedSeparateLockKeys(t *testing.T) {
	src := `package main

import "sync"

var muA sync.Mutex
var muB sync.Mutex
var counter int

func crossed() {
	muA.Lock()
	muA.Unlock()
	muB.Lock()
	counter = 1
	muB.Unlock()
}
`
	tree, content := parseSource(t, src)
	syncFuncs := CollectSyncFuncs(tree, content)

	assert.True(t, IsSynchronized(tree, rangeOf(t, src, "counter", 2), content, syncFuncs))
}

func TestIsSynchronizedIgnoresOtherGoroutineLocks(t *testing.T) {
	src := `package main

import "sync"

var mu sync.Mutex
var counter int

func mixed() {
	go func() {
		mu.Lock()
		mu.Unlock()
	}()
	counter = 1
}
`
	tree, content := parseSource(t, src)
	syncFuncs := CollectSyncFuncs(tree, content)

	assert.False(t, IsSynchronized(tree, rangeOf(t, src, "counter", 2), content, syncFuncs),
		"locks taken in another execution context do not cover the access")
}

func TestIsSynchronizedThroughWrapper(t *testing.T) {
	src := `package main

import "sync"

var mu sync.Mutex
var counter int

func addLocked(v int) {
	mu.Lock()
	counter += v
	mu.Unlock()
}

func user() {
	addLocked(counter)
}
`
	tree, content := parseSource(t, src)
	syncFuncs := CollectSyncFuncs(tree, content)

	require.True(t, syncFuncs["addLocked"])
	assert.True(t, IsSynchronized(tree, rangeOf(t, src, "counter", 3), content, syncFuncs),
		"arguments of a call to a synchronizing function count as covered")
}

func TestCollectSyncFuncs(t *testing.T) {
	src := `package main

import (
	"sync"
	"sync/atomic"
)

type box struct{ mu sync.Mutex }

func (b *box) guard() {
	b.mu.Lock()
	b.mu.Unlock()
}

var hits int64

func bumpAtomic() {
	atomic.AddInt64(&hits, 1)
}

func plain() {
	hits = 0
}
`
	tree, content := parseSource(t, src)
	syncFuncs := CollectSyncFuncs(tree, content)

	assert.True(t, syncFuncs["guard"])
	assert.True(t, syncFuncs["bumpAtomic"])
	assert.False(t, syncFuncs["plain"])
}

func TestIsInAtomicContext(t *testing.T) {
	src := `package main

import "sync/atomic"

var hits int64

func record() {
	atomic.AddInt64(&hits, 1)
	hits = 2
}
`
	tree, content := parseSource(t, src)

	assert.True(t, IsInAtomicContext(tree, rangeOf(t, src, "hits", 2), content))
	assert.False(t, IsInAtomicContext(tree, rangeOf(t, src, "hits", 3), content))
}

const goroutineFixture = `package main

func spawn() {
	shared := 0
	go func() {
		shared = 1
	}()
	_ = shared
}
`

func TestIsInGoroutine(t *testing.T) {
	tree, _ := parseSource(t, goroutineFixture)

	assert.True(t, IsInGoroutine(tree, rangeOf(t, goroutineFixture, "shared", 2)))
	assert.False(t, IsInGoroutine(tree, rangeOf(t, goroutineFixture, "shared", 3)))
}

func TestIsCaptured(t *testing.T) {
	tree, _ := parseSource(t, goroutineFixture)
	decl := rangeOf(t, goroutineFixture, "shared", 1)

	assert.True(t, IsCaptured(tree, rangeOf(t, goroutineFixture, "shared", 2), decl))
	assert.False(t, IsCaptured(tree, rangeOf(t, goroutineFixture, "shared", 3), decl),
		"use in the declaring function body is not a capture")
}

func TestIsCapturedSameClosure(t *testing.T) {
	src := `package main

func local() {
	fn := func() {
		inner := 1
		inner = 2
	}
	fn()
}
`
	tree, _ := parseSource(t, src)

	assert.False(t, IsCaptured(tree, rangeOf(t, src, "inner", 2), rangeOf(t, src, "inner", 1)),
		"declaration and use inside the same closure share a boundary")
}

func TestRaceSeverity(t *testing.T) {
	src := `package main

import "sync"

var mu sync.Mutex
var counter int

func writer() {
	mu.Lock()
	counter = 1
	mu.Unlock()
	counter = 2
	go func() {
		counter = 3
	}()
	_ = counter
}
`
	tree, content := parseSource(t, src)
	syncFuncs := CollectSyncFuncs(tree, content)

	tests := []struct {
		name    string
		nth     int
		isWrite bool
		want    Severity
	}{
		{"synchronized write", 2, true, SeverityLow},
		{"unsynchronized write", 3, true, SeverityHigh},
		{"write inside goroutine", 4, true, SeverityHigh},
		{"unsynchronized read", 5, false, SeverityMedium},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rng := rangeOf(t, src, "counter", tc.nth)
			assert.Equal(t, tc.want, RaceSeverity(tree, rng, content, tc.isWrite, syncFuncs))
		})
	}
}

func TestHasSynchronizationInBlock(t *testing.T) {
	tree, content := parseSource(t, lockFixture)

	assert.True(t, HasSynchronizationInBlock(tree, rangeOf(t, lockFixture, "counter", 2), content))

	bare := `package main

var counter int

func bare() {
	counter = 1
}
`
	bareTree, bareContent := parseSource(t, bare)
	assert.False(t, HasSynchronizationInBlock(bareTree, rangeOf(t, bare, "counter", 2), bareContent))
}
