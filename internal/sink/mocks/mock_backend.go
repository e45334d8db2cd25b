// Package mocks provides testify mocks for the sink package.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBackend is a testify mock of sink.Backend.
type MockBackend struct {
	mock.Mock
	name string
}

// NewMockBackend creates a named MockBackend whose expectations are asserted
// on cleanup.
func NewMockBackend(t interface {
	mock.TestingT
	Cleanup(func())
}, name string,
) *MockBackend {
	m := &MockBackend{name: name}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Name implements sink.Backend.
func (m *MockBackend) Name() string { return m.name }

// EnsureWorksheet implements sink.Backend.
func (m *MockBackend) EnsureWorksheet(ctx context.Context, spreadsheetID, worksheet string) error {
	return m.Called(ctx, spreadsheetID, worksheet).Error(0)
}

// Clear implements sink.Backend.
func (m *MockBackend) Clear(ctx context.Context, spreadsheetID, worksheet string) error {
	return m.Called(ctx, spreadsheetID, worksheet).Error(0)
}

// Update implements sink.Backend.
func (m *MockBackend) Update(ctx context.Context, spreadsheetID, worksheet string, startRow int, rows [][]string) error {
	return m.Called(ctx, spreadsheetID, worksheet, startRow, rows).Error(0)
}
