package session

import "context"

// Repository persists the singleton cloud session.
// Load returns (nil, nil) when no session is stored.
type Repository interface {
	Load(ctx context.Context) (*CloudSession, error)
	Save(ctx context.Context, s *CloudSession) error
	Clear(ctx context.Context) error
}
