// Package clientruntime implements the remote client side of a tunnel:
// the per-connection state machine that bootstraps a leaf certificate,
// dials the gateway, keeps the connection alive with health pings, and
// backs off on failure. This is component H of the tunnel gateway
// (spec.md §4.H).
package clientruntime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sufield/trz-gateway/internal/healthpb"
	"github.com/sufield/trz-gateway/internal/trust"
)

// Debug mirrors the original's cfg!(debug_assertions) switch: set
// TRZGW_DEBUG to make cmd/remote-client's -debug flag default to true,
// selecting the shorter debug-mode health pacing defaults from
// internal/config. cmd/gateway does not read it.
var Debug = os.Getenv("TRZGW_DEBUG") != ""

type state int

const (
	stateBootstrapping state = iota
	stateConnecting
	stateConnected
	stateBackoff
	stateShuttingDown
)

func (s state) String() string {
	switch s {
	case stateBootstrapping:
		return "bootstrapping"
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	case stateBackoff:
		return "backoff"
	case stateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Options configures a Runtime. GatewayTrust verifies the gateway's
// server certificate during the inner TLS handshake (spec.md §4.C
// Client connector); ServerName is the gateway's certificate CN/SAN,
// required for that WebPKI verification; DialURL is the wss:// tunnel
// upgrade endpoint including the client_id path segment.
type Options struct {
	DialURL       string
	GatewayTrust  *trust.Store
	ServerName    string
	Issuer        *CertificateIssuer
	AppRegisterer ApplicationRegisterer

	RetryDelay    time.Duration
	RetryExponent float64
	RetryMaxDelay time.Duration

	HealthPeriod  time.Duration
	HealthTimeout time.Duration

	Logger *slog.Logger
}

// Runtime drives one or more concurrent per-connection state machines
// against the same gateway, sharing one leaf cache between them
// (spec.md §4.H).
type Runtime struct {
	opts  Options
	leafs *LeafCache
}

// New builds a Runtime from opts.
func New(opts Options) *Runtime {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runtime{opts: opts, leafs: NewLeafCache(opts.Issuer)}
}

// newBackOff builds the exponential backoff state for one connection's
// Backoff state, jitter-free per spec.md §4.H defaults.
func (r *Runtime) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.RetryDelay
	b.Multiplier = r.opts.RetryExponent
	b.MaxInterval = r.opts.RetryMaxDelay
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// Run drives a single connection's state machine until ctx is
// cancelled, exactly mirroring the Rust state machine's
// for/match-over-state shape (spec.md §4.H).
func (r *Runtime) Run(ctx context.Context) error {
	st := stateBootstrapping
	var sess *session
	backOff := r.newBackOff()

	defer func() {
		if sess != nil {
			sess.Close()
		}
	}()

	for {
		if ctx.Err() != nil {
			st = stateShuttingDown
		}
		r.opts.Logger.Debug("state transition", "state", st.String())

		switch st {
		case stateBootstrapping:
			if _, err := r.leafs.Get(ctx); err != nil {
				r.opts.Logger.Warn("bootstrapping failed", "error", err)
				st = stateBackoff
				continue
			}
			st = stateConnecting

		case stateConnecting:
			bundle, err := r.leafs.Get(ctx)
			if err != nil {
				r.opts.Logger.Warn("leaf unavailable", "error", err)
				st = stateBackoff
				continue
			}
			s, err := dialSession(ctx, r.opts.DialURL, r.opts.GatewayTrust, bundle, r.opts.ServerName, r.opts.AppRegisterer)
			if err != nil {
				r.opts.Logger.Warn("connecting failed", "error", err)
				st = stateBackoff
				continue
			}
			sess = s
			backOff.Reset()
			st = stateConnected

		case stateConnected:
			if err := r.pingOnce(ctx, sess); err != nil {
				r.opts.Logger.Warn("health ping failed", "error", err)
				sess.Close()
				sess = nil
				st = stateBackoff
				continue
			}
			if err := sleepOrDone(ctx, r.opts.HealthPeriod); err != nil {
				st = stateShuttingDown
				continue
			}

		case stateBackoff:
			delay := backOff.NextBackOff()
			if delay == backoff.Stop {
				return errors.New("clientruntime: backoff exhausted")
			}
			if err := sleepOrDone(ctx, delay); err != nil {
				st = stateShuttingDown
				continue
			}
			st = stateConnecting

		case stateShuttingDown:
			return ctx.Err()
		}
	}
}

// pingOnce sends one health ping with a unique connection_id and a
// per-call deadline of HealthTimeout (spec.md §4.H Connected, §4.I).
func (r *Runtime) pingOnce(ctx context.Context, sess *session) error {
	pingCtx, cancel := context.WithTimeout(ctx, r.opts.HealthTimeout)
	defer cancel()

	_, err := sess.healthClient.Ping(pingCtx, &healthpb.Ping{ConnectionID: uuid.NewString()})
	if err != nil {
		return fmt.Errorf("clientruntime: ping: %w", err)
	}
	return nil
}

// sleepOrDone waits for d or ctx's cancellation, whichever comes
// first, the cooperative-cancellation pattern of spec.md §5.
func sleepOrDone(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Spawn launches n independent Run goroutines sharing this Runtime's
// leaf cache, per spec.md §4.H's "multiple concurrent connections per
// client" allowance. It returns once ctx is done and every goroutine
// has exited.
func (r *Runtime) Spawn(ctx context.Context, n int) {
	var group errgroup.Group
	for i := 0; i < n; i++ {
		idx := i
		group.Go(func() error {
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.opts.Logger.Warn("connection loop exited", "index", idx, "error", err)
			}
			// Every loop's failure is logged, not propagated: one
			// connection backing off or erroring must not tear down
			// its siblings.
			return nil
		})
	}
	_ = group.Wait()
}
