// internal/bot/mocks_test.go
package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
	"github.com/rovshanmuradov/aave-liquidator/internal/events"
)

// MockSource реализует интерфейс CandidateSource
type MockSource struct {
	mock.Mock
}

func (m *MockSource) GetCandidates(ctx context.Context) ([]domain.Candidate, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Candidate), args.Error(1)
}

// MockSubscriber реализует интерфейс Subscriber
type MockSubscriber struct {
	mock.Mock
}

func (m *MockSubscriber) Subscribe(eventType events.EventType, handler events.Handler) events.Subscription {
	args := m.Called(eventType, handler)
	return args.Get(0).(events.Subscription)
}

type MockSubscription struct {
	mock.Mock
}

func (m *MockSubscription) Unsubscribe() {
	m.Called()
}

func TestWatcherUnsubscribesOnExit(t *testing.T) {
	boom := errors.New("listing unavailable")

	source := new(MockSource)
	source.On("GetCandidates", mock.Anything).Return([]domain.Candidate(nil), boom).Once()

	sub := new(MockSubscription)
	sub.On("Unsubscribe").Return().Once()

	subscriber := new(MockSubscriber)
	subscriber.On("Subscribe", events.CycleFailed, mock.Anything).Return(sub).Once()

	w := NewWatcher(source, subscriber, 0, zaptest.NewLogger(t))
	err := w.Run(context.Background())

	assert.ErrorIs(t, err, boom)
	source.AssertExpectations(t)
	subscriber.AssertExpectations(t)
	sub.AssertExpectations(t)
}
