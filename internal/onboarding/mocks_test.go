package onboarding

import (
	"context"

	"operationcode_backend/internal/jobs"
	"operationcode_backend/internal/shared"

	"github.com/stretchr/testify/mock"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) GetUserByEmail(ctx context.Context, email string) (*shared.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.User), args.Error(1)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, kind jobs.Kind, payload any) (*jobs.Handle, error) {
	args := m.Called(ctx, kind, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jobs.Handle), args.Error(1)
}
