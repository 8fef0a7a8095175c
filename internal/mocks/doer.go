package mocks

import (
	"sync"
	"time"

	"github.com/gojuno/minimock/v3"
	"github.com/tarantool/go-tarantool/v2"
)

// DoerMock implements tarantool.Doer.
type DoerMock struct {
	t          minimock.Tester
	finishOnce sync.Once

	DoMock mDoerMockDo
}

var _ tarantool.Doer = (*DoerMock)(nil)

// NewDoerMock returns a mock for tarantool.Doer.
func NewDoerMock(t minimock.Tester) *DoerMock {
	m := &DoerMock{t: t, finishOnce: sync.Once{}} //nolint:exhaustruct

	m.DoMock = mDoerMockDo{
		mock: m,
		exp:  newExpectation[tarantool.Request, *tarantool.Future](t, "DoerMock.Do"),
	}

	if controller, ok := t.(minimock.MockController); ok {
		controller.RegisterMocker(m)
	}

	t.Cleanup(m.MinimockFinish)

	return m
}

type mDoerMockDo struct {
	mock *DoerMock
	exp  *expectation[tarantool.Request, *tarantool.Future]
}

// Set uses f to serve every Do call.
func (mm *mDoerMockDo) Set(f func(req tarantool.Request) *tarantool.Future) *DoerMock {
	mm.exp.set(f)
	return mm.mock
}

// Return queues the future returned by the next Do call.
func (mm *mDoerMockDo) Return(fut *tarantool.Future) *DoerMock {
	mm.exp.push(fut)
	return mm.mock
}

// Calls returns the requests of every Do call made so far.
func (mm *mDoerMockDo) Calls() []tarantool.Request {
	return mm.exp.recorded()
}

// Do implements tarantool.Doer.
func (m *DoerMock) Do(req tarantool.Request) *tarantool.Future {
	return m.DoMock.exp.call(req)
}

// MinimockFinish checks that all expected calls were made.
func (m *DoerMock) MinimockFinish() {
	m.finishOnce.Do(func() {
		m.DoMock.exp.finish()
	})
}

// MinimockWait waits for all expected calls until timeout.
func (m *DoerMock) MinimockWait(timeout time.Duration) {
	wait(timeout, m.DoMock.exp.done, m.MinimockFinish)
}

// FailedFuture returns a completed future carrying err.
func FailedFuture(req tarantool.Request, err error) *tarantool.Future {
	fut := tarantool.NewFuture(req)
	fut.SetError(err)

	return fut
}
