// Package mocks provides testify mocks for the credential package.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
)

// MockStore is a testify mock of credential.Store.
type MockStore struct {
	mock.Mock
}

// NewMockStore creates a MockStore whose expectations are asserted on cleanup.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockStore {
	m := &MockStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Load implements credential.Store.
func (m *MockStore) Load(ctx context.Context, p credential.Platform) (credential.Credential, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(credential.Credential), args.Error(1)
}

// Save implements credential.Store.
func (m *MockStore) Save(ctx context.Context, c credential.Credential) error {
	return m.Called(ctx, c).Error(0)
}

// Delete implements credential.Store.
func (m *MockStore) Delete(ctx context.Context, p credential.Platform) error {
	return m.Called(ctx, p).Error(0)
}
