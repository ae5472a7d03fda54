package repository

import (
	"context"

	"github.com/stretchr/testify/mock"

	"clinic-gatekeeper/internal/model"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByID(ctx context.Context, id string) (model.StaffUser, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.StaffUser), args.Error(1)
}

func (m *MockUserStore) FindByUsername(ctx context.Context, username string) (model.StaffUser, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.StaffUser), args.Error(1)
}

func (m *MockUserStore) Create(ctx context.Context, u model.StaffUser) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) Insert(ctx context.Context, entry model.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditStore) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.AuditEntry), args.Int(1), args.Error(2)
}
