// Package intenttest provides an intent service double for tests.
package intenttest

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ovs-container-lab/vport-intents/pkg/intent"
)

// Service is a testify mock of intent.Service. Use Accept to make it behave
// like a well-behaved intent server.
type Service struct {
	mock.Mock

	mu        sync.Mutex
	submitted []intent.Intent
	issued    []uuid.UUID
	withdrawn []uuid.UUID
}

var _ intent.Service = (*Service)(nil)

// Accept sets up the mock to acknowledge every submit with a new id and
// every withdraw with success
func (s *Service) Accept() *Service {
	s.On("Submit", mock.Anything, mock.Anything).Return(func(context.Context, intent.Intent) uuid.UUID {
		return uuid.New()
	}, nil)
	s.On("Withdraw", mock.Anything, mock.Anything).Return(nil)
	return s
}

// Submit records the intent and returns what the expectations say
func (s *Service) Submit(ctx context.Context, in intent.Intent) (uuid.UUID, error) {
	args := s.Called(ctx, in)

	var id uuid.UUID
	switch v := args.Get(0).(type) {
	case func(context.Context, intent.Intent) uuid.UUID:
		id = v(ctx, in)
	case uuid.UUID:
		id = v
	}

	err := args.Error(1)
	if err == nil {
		s.mu.Lock()
		s.submitted = append(s.submitted, in)
		s.issued = append(s.issued, id)
		s.mu.Unlock()
	}
	return id, err
}

// Withdraw records the id and returns what the expectations say
func (s *Service) Withdraw(ctx context.Context, id uuid.UUID) error {
	args := s.Called(ctx, id)
	s.mu.Lock()
	s.withdrawn = append(s.withdrawn, id)
	s.mu.Unlock()
	return args.Error(0)
}

// Submitted returns the acknowledged intents in submission order
func (s *Service) Submitted() []intent.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]intent.Intent(nil), s.submitted...)
}

// Issued returns the ids handed out for acknowledged intents
func (s *Service) Issued() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.issued...)
}

// Withdrawn returns every id a withdraw was attempted for
func (s *Service) Withdrawn() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.withdrawn...)
}
