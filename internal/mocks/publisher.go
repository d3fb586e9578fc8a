package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"relay-service/internal/models"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// EventSinkMock records enqueued events for assertion.
type EventSinkMock struct {
	Events []models.Event
}

func (m *EventSinkMock) Enqueue(e models.Event) {
	m.Events = append(m.Events, e)
}
