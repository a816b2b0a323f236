package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/pkg/mq"
	"github.com/stretchr/testify/mock"
)

// Consumer records the handler it was given so tests can feed it deliveries.
type Consumer struct {
	mock.Mock
	Handler mq.Handle
}

func (m *Consumer) Consume(ctx context.Context, prefetch int, queue string, handler mq.Handle) error {
	m.Handler = handler
	args := m.Called(ctx, prefetch, queue)
	return args.Error(0)
}
