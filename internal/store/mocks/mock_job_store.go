// Package mocks provides testify mocks for the store package.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/donaldgifford/marketplace-sync/internal/store"
)

// MockJobStore is a testify mock of store.JobStore.
type MockJobStore struct {
	mock.Mock
}

// MockJobStore_Expecter offers typed expectation helpers.
type MockJobStore_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter.
func (m *MockJobStore) EXPECT() *MockJobStore_Expecter {
	return &MockJobStore_Expecter{mock: &m.Mock}
}

// NewMockJobStore creates a MockJobStore whose expectations are asserted on cleanup.
func NewMockJobStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockJobStore {
	m := &MockJobStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ store.JobStore = (*MockJobStore)(nil)

// InsertJobRun implements store.JobStore.
func (m *MockJobStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	args := m.Called(ctx, jobName)
	return args.Get(0).(string), args.Error(1)
}

// MockJobStore_InsertJobRun_Call wraps the expectation for InsertJobRun.
type MockJobStore_InsertJobRun_Call struct {
	*mock.Call
}

// InsertJobRun expects a InsertJobRun call.
func (e *MockJobStore_Expecter) InsertJobRun(ctx any, jobName any) *MockJobStore_InsertJobRun_Call {
	return &MockJobStore_InsertJobRun_Call{Call: e.mock.On("InsertJobRun", ctx, jobName)}
}

// Return sets the results of the call.
func (c *MockJobStore_InsertJobRun_Call) Return(id string, err error) *MockJobStore_InsertJobRun_Call {
	c.Call.Return(id, err)
	return c
}

// CompleteJobRun implements store.JobStore.
func (m *MockJobStore) CompleteJobRun(ctx context.Context, id string, status string, errText string, rowsAffected int) error {
	args := m.Called(ctx, id, status, errText, rowsAffected)
	return args.Error(0)
}

// MockJobStore_CompleteJobRun_Call wraps the expectation for CompleteJobRun.
type MockJobStore_CompleteJobRun_Call struct {
	*mock.Call
}

// CompleteJobRun expects a CompleteJobRun call.
func (e *MockJobStore_Expecter) CompleteJobRun(ctx any, id any, status any, errText any, rowsAffected any) *MockJobStore_CompleteJobRun_Call {
	return &MockJobStore_CompleteJobRun_Call{Call: e.mock.On("CompleteJobRun", ctx, id, status, errText, rowsAffected)}
}

// Return sets the results of the call.
func (c *MockJobStore_CompleteJobRun_Call) Return(err error) *MockJobStore_CompleteJobRun_Call {
	c.Call.Return(err)
	return c
}

// ListJobRuns implements store.JobStore.
func (m *MockJobStore) ListJobRuns(ctx context.Context, q *store.JobRunQuery) ([]store.JobRun, error) {
	args := m.Called(ctx, q)
	var r0 []store.JobRun
	if v := args.Get(0); v != nil {
		r0 = v.([]store.JobRun)
	}
	return r0, args.Error(1)
}

// MockJobStore_ListJobRuns_Call wraps the expectation for ListJobRuns.
type MockJobStore_ListJobRuns_Call struct {
	*mock.Call
}

// ListJobRuns expects a ListJobRuns call.
func (e *MockJobStore_Expecter) ListJobRuns(ctx any, q any) *MockJobStore_ListJobRuns_Call {
	return &MockJobStore_ListJobRuns_Call{Call: e.mock.On("ListJobRuns", ctx, q)}
}

// Return sets the results of the call.
func (c *MockJobStore_ListJobRuns_Call) Return(runs []store.JobRun, err error) *MockJobStore_ListJobRuns_Call {
	c.Call.Return(runs, err)
	return c
}

// RecoverStaleJobRuns implements store.JobStore.
func (m *MockJobStore) RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int), args.Error(1)
}

// MockJobStore_RecoverStaleJobRuns_Call wraps the expectation for RecoverStaleJobRuns.
type MockJobStore_RecoverStaleJobRuns_Call struct {
	*mock.Call
}

// RecoverStaleJobRuns expects a RecoverStaleJobRuns call.
func (e *MockJobStore_Expecter) RecoverStaleJobRuns(ctx any, olderThan any) *MockJobStore_RecoverStaleJobRuns_Call {
	return &MockJobStore_RecoverStaleJobRuns_Call{Call: e.mock.On("RecoverStaleJobRuns", ctx, olderThan)}
}

// Return sets the results of the call.
func (c *MockJobStore_RecoverStaleJobRuns_Call) Return(n int, err error) *MockJobStore_RecoverStaleJobRuns_Call {
	c.Call.Return(n, err)
	return c
}

// AcquireSchedulerLock implements store.JobStore.
func (m *MockJobStore) AcquireSchedulerLock(ctx context.Context, jobName string, holder string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, jobName, holder, ttl)
	return args.Get(0).(bool), args.Error(1)
}

// MockJobStore_AcquireSchedulerLock_Call wraps the expectation for AcquireSchedulerLock.
type MockJobStore_AcquireSchedulerLock_Call struct {
	*mock.Call
}

// AcquireSchedulerLock expects a AcquireSchedulerLock call.
func (e *MockJobStore_Expecter) AcquireSchedulerLock(ctx any, jobName any, holder any, ttl any) *MockJobStore_AcquireSchedulerLock_Call {
	return &MockJobStore_AcquireSchedulerLock_Call{Call: e.mock.On("AcquireSchedulerLock", ctx, jobName, holder, ttl)}
}

// Return sets the results of the call.
func (c *MockJobStore_AcquireSchedulerLock_Call) Return(ok bool, err error) *MockJobStore_AcquireSchedulerLock_Call {
	c.Call.Return(ok, err)
	return c
}

// ReleaseSchedulerLock implements store.JobStore.
func (m *MockJobStore) ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error {
	args := m.Called(ctx, jobName, holder)
	return args.Error(0)
}

// MockJobStore_ReleaseSchedulerLock_Call wraps the expectation for ReleaseSchedulerLock.
type MockJobStore_ReleaseSchedulerLock_Call struct {
	*mock.Call
}

// ReleaseSchedulerLock expects a ReleaseSchedulerLock call.
func (e *MockJobStore_Expecter) ReleaseSchedulerLock(ctx any, jobName any, holder any) *MockJobStore_ReleaseSchedulerLock_Call {
	return &MockJobStore_ReleaseSchedulerLock_Call{Call: e.mock.On("ReleaseSchedulerLock", ctx, jobName, holder)}
}

// Return sets the results of the call.
func (c *MockJobStore_ReleaseSchedulerLock_Call) Return(err error) *MockJobStore_ReleaseSchedulerLock_Call {
	c.Call.Return(err)
	return c
}
