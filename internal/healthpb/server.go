package healthpb

import (
	"context"
	"time"
)

// Server is the reference HealthService implementation described by
// spec.md §4.I: it sleeps for the requested delay, if any, before
// replying, honoring the caller's context deadline in the meantime.
type Server struct {
	UnimplementedHealthServiceServer
}

// Ping implements HealthServiceServer.
func (Server) Ping(ctx context.Context, p *Ping) (*Pong, error) {
	delay := DelayFor(p)
	if delay <= 0 {
		return &Pong{}, nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return &Pong{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
