// Package mocks contains minimock compatible test doubles of the interfaces the
// module consumes: storage drivers and Tarantool connections.
package mocks

//go:generate go tool minimock -i github.com/tarantool/go-typedkv/driver.Driver -o driver.go -n DriverMock -p mocks
//go:generate go tool minimock -i github.com/tarantool/go-tarantool/v2.Doer -o doer.go -n DoerMock -p mocks

import (
	"sync"
	"time"

	"github.com/gojuno/minimock/v3"
)

// expectation is the shared call bookkeeping of one mocked method.
type expectation[P, R any] struct {
	name string
	t    minimock.Tester

	mu       sync.Mutex
	fn       func(P) R
	results  []R
	calls    []P
	times    uint64
	optional bool
}

func newExpectation[P, R any](t minimock.Tester, name string) *expectation[P, R] {
	return &expectation[P, R]{name: name, t: t} //nolint:exhaustruct
}

func (e *expectation[P, R]) set(fn func(P) R) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.fn = fn
}

// push queues a result. Queued results are returned in order; the last one
// is repeated once the queue is drained.
func (e *expectation[P, R]) push(result R) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.results = append(e.results, result)
}

func (e *expectation[P, R]) call(params P) R {
	e.mu.Lock()
	e.calls = append(e.calls, params)
	fn := e.fn

	var (
		result R
		found  bool
	)

	switch {
	case fn != nil:
	case len(e.results) > 1:
		result, found = e.results[0], true
		e.results = e.results[1:]
	case len(e.results) == 1:
		result, found = e.results[0], true
	}
	e.mu.Unlock()

	if fn != nil {
		return fn(params)
	}

	if !found {
		e.t.Helper()
		e.t.Fatalf("Unexpected call to %s", e.name)
	}

	return result
}

func (e *expectation[P, R]) recorded() []P {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]P(nil), e.calls...)
}

func (e *expectation[P, R]) done() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.optional {
		return true
	}

	if e.times > 0 {
		return uint64(len(e.calls)) == e.times
	}

	if e.fn == nil && len(e.results) == 0 {
		return true
	}

	return len(e.calls) > 0
}

func (e *expectation[P, R]) finish() {
	if e.done() {
		return
	}

	e.t.Helper()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.times > 0 {
		e.t.Errorf("Expected %d calls to %s, got %d", e.times, e.name, len(e.calls))
		return
	}

	e.t.Errorf("Expected call to %s", e.name)
}

func wait(timeout time.Duration, done func() bool, finish func()) {
	timeoutCh := time.After(timeout)

	for !done() {
		select {
		case <-timeoutCh:
			finish()
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}
