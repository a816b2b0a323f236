package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type Guard struct {
	mock.Mock
}

func (m *Guard) Seen(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *Guard) Mark(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
