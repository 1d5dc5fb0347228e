package healthpb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/trz-gateway/internal/healthpb"
)

func TestServerPingWithoutDelayRespondsImmediately(t *testing.T) {
	t.Parallel()

	start := time.Now()
	_, err := healthpb.Server{}.Ping(context.Background(), &healthpb.Ping{ConnectionID: "c1"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestServerPingHonorsDelay(t *testing.T) {
	t.Parallel()

	delay := int64(20)
	start := time.Now()
	_, err := healthpb.Server{}.Ping(context.Background(), &healthpb.Ping{ConnectionID: "c1", DelayMillis: &delay})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestServerPingRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	delay := int64(5000)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := healthpb.Server{}.Ping(ctx, &healthpb.Ping{ConnectionID: "c1", DelayMillis: &delay})
	require.Error(t, err)
}
