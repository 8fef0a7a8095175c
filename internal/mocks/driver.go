package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/gojuno/minimock/v3"

	"github.com/tarantool/go-typedkv/driver"
	"github.com/tarantool/go-typedkv/kv"
)

// DriverMockExecuteParams holds the arguments of one Execute call.
type DriverMockExecuteParams struct {
	Ctx   context.Context //nolint:containedctx
	Conds []kv.Cond
	Ops   []kv.Op
}

// DriverMockExecuteResults holds the results of one Execute call.
type DriverMockExecuteResults struct {
	Response kv.Response
	Err      error
}

// DriverMock implements driver.Driver.
type DriverMock struct {
	t          minimock.Tester
	finishOnce sync.Once

	ExecuteMock mDriverMockExecute
}

var _ driver.Driver = (*DriverMock)(nil)

// NewDriverMock returns a mock for driver.Driver.
func NewDriverMock(t minimock.Tester) *DriverMock {
	m := &DriverMock{t: t, finishOnce: sync.Once{}} //nolint:exhaustruct

	m.ExecuteMock = mDriverMockExecute{
		mock: m,
		exp:  newExpectation[DriverMockExecuteParams, DriverMockExecuteResults](t, "DriverMock.Execute"),
	}

	if controller, ok := t.(minimock.MockController); ok {
		controller.RegisterMocker(m)
	}

	t.Cleanup(m.MinimockFinish)

	return m
}

type mDriverMockExecute struct {
	mock *DriverMock
	exp  *expectation[DriverMockExecuteParams, DriverMockExecuteResults]
}

// Return queues the results of the next Execute call.
func (mm *mDriverMockExecute) Return(response kv.Response, err error) *DriverMock {
	mm.exp.push(DriverMockExecuteResults{Response: response, Err: err})
	return mm.mock
}

// Set uses f to serve every Execute call.
func (mm *mDriverMockExecute) Set(f func(ctx context.Context, conds []kv.Cond, ops []kv.Op) (kv.Response, error)) *DriverMock {
	mm.exp.set(func(p DriverMockExecuteParams) DriverMockExecuteResults {
		response, err := f(p.Ctx, p.Conds, p.Ops)
		return DriverMockExecuteResults{Response: response, Err: err}
	})

	return mm.mock
}

// Times sets the exact number of expected Execute calls.
func (mm *mDriverMockExecute) Times(n uint64) *mDriverMockExecute {
	mm.exp.mu.Lock()
	defer mm.exp.mu.Unlock()

	mm.exp.times = n

	return mm
}

// Optional allows Execute not to be called at all.
func (mm *mDriverMockExecute) Optional() *mDriverMockExecute {
	mm.exp.mu.Lock()
	defer mm.exp.mu.Unlock()

	mm.exp.optional = true

	return mm
}

// Calls returns the arguments of every Execute call made so far.
func (mm *mDriverMockExecute) Calls() []DriverMockExecuteParams {
	return mm.exp.recorded()
}

// Execute implements driver.Driver.
func (m *DriverMock) Execute(ctx context.Context, conds []kv.Cond, ops []kv.Op) (kv.Response, error) {
	results := m.ExecuteMock.exp.call(DriverMockExecuteParams{Ctx: ctx, Conds: conds, Ops: ops})
	return results.Response, results.Err
}

// MinimockFinish checks that all expected calls were made.
func (m *DriverMock) MinimockFinish() {
	m.finishOnce.Do(func() {
		m.ExecuteMock.exp.finish()
	})
}

// MinimockWait waits for all expected calls until timeout.
func (m *DriverMock) MinimockWait(timeout time.Duration) {
	wait(timeout, m.ExecuteMock.exp.done, m.MinimockFinish)
}
