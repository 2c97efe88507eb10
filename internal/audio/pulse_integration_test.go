//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListDevicesIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	devices, err := ListDevices(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, devices)
}

func TestRecorderCapturesFromPulseIntegration(t *testing.T) {
	opener := PulseOpener{Input: "default", Fallback: "default", BlockSize: 1024}
	recorder := NewRecorder(opener, Format{SampleRate: 16000, Channels: 1}, 10*time.Second)

	require.NoError(t, recorder.Start(context.Background()))
	time.Sleep(500 * time.Millisecond)

	buf, err := recorder.Stop()
	require.NoError(t, err)
	require.False(t, buf.Empty())
}
