package listen

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rbright/voxscribe/internal/audio"
	"github.com/rbright/voxscribe/internal/config"
	"github.com/stretchr/testify/require"
)

var testFormat = audio.Format{SampleRate: 1000, Channels: 1}

type fakeStream struct {
	mu     sync.Mutex
	closed bool
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type fakeOpener struct {
	onBlock func([]float32)
	stream  *fakeStream
}

func (o *fakeOpener) Open(_ context.Context, _ audio.Format, onBlock func([]float32)) (audio.Stream, error) {
	o.onBlock = onBlock
	o.stream = &fakeStream{}
	return o.stream, nil
}

func openTestSource(t *testing.T) (*Source, *fakeOpener) {
	t.Helper()
	opener := &fakeOpener{}
	src, err := Open(context.Background(), opener, testFormat)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src, opener
}

// block returns 0.1s of constant amplitude at testFormat.
func block(amplitude float32) []float32 {
	out := make([]float32, 100)
	for i := range out {
		out[i] = amplitude
	}
	return out
}

func pushN(opener *fakeOpener, n int, amplitude float32) {
	for i := 0; i < n; i++ {
		opener.onBlock(block(amplitude))
	}
}

func testListenerConfig() config.ListenerConfig {
	return config.ListenerConfig{
		PauseThreshold:     300 * time.Millisecond,
		EnergyThreshold:    1000,
		DynamicDamping:     0.15,
		AdjustmentRatio:    1.5,
		NonSpeakingPadding: 200 * time.Millisecond,
	}
}

func TestEnergy(t *testing.T) {
	require.Zero(t, Energy(nil))
	require.InDelta(t, 16384, Energy(block(0.5)), 0.001)
	require.InDelta(t, 16384, Energy([]float32{0.5, -0.5}), 0.001)
}

func TestAdjustUsesDampedAverage(t *testing.T) {
	cfg := testListenerConfig()
	cfg.EnergyThreshold = 4000
	l := New(cfg, nil)

	l.adjust(100, 1)
	require.InDelta(t, 4000*0.15+150*0.85, l.Threshold(), 0.0001)
}

func TestCalibrateLowersThresholdTowardNoiseFloor(t *testing.T) {
	src, opener := openTestSource(t)
	l := New(testListenerConfig(), nil)

	pushN(opener, 10, 0.001)
	require.NoError(t, l.Calibrate(context.Background(), src, time.Second))

	require.Less(t, l.Threshold(), 1000.0)
	require.Greater(t, l.Threshold(), Energy(block(0.001))*1.5)
}

func TestListenReturnsPhraseWithPadding(t *testing.T) {
	src, opener := openTestSource(t)
	l := New(testListenerConfig(), nil)

	pushN(opener, 5, 0)
	pushN(opener, 6, 0.5)
	pushN(opener, 5, 0)

	buf, err := l.Listen(context.Background(), src, 0, 0)
	require.NoError(t, err)
	require.Equal(t, testFormat, buf.Format)
	require.Len(t, buf.Blocks, 10)

	loud := 0
	for _, b := range buf.Blocks {
		if Energy(b) > 1000 {
			loud++
		}
	}
	require.Equal(t, 6, loud)
	require.Zero(t, Energy(buf.Blocks[0]))
	require.Zero(t, Energy(buf.Blocks[len(buf.Blocks)-1]))
}

func TestListenTimesOutWithoutSpeech(t *testing.T) {
	src, opener := openTestSource(t)
	l := New(testListenerConfig(), nil)

	pushN(opener, 30, 0)
	_, err := l.Listen(context.Background(), src, time.Second, 0)
	require.ErrorIs(t, err, ErrWaitTimeout)
}

func TestListenTimesOutWhenStreamIsStalled(t *testing.T) {
	src, _ := openTestSource(t)
	l := New(testListenerConfig(), nil)

	_, err := l.Listen(context.Background(), src, 50*time.Millisecond, 0)
	require.ErrorIs(t, err, ErrWaitTimeout)
}

func TestListenSkipsPhrasesShorterThanMinimum(t *testing.T) {
	src, opener := openTestSource(t)
	l := New(testListenerConfig(), nil)

	pushN(opener, 1, 0.5)
	pushN(opener, 4, 0)
	pushN(opener, 6, 0.5)
	pushN(opener, 4, 0)

	buf, err := l.Listen(context.Background(), src, 0, 0)
	require.NoError(t, err)

	loud := 0
	for _, b := range buf.Blocks {
		if Energy(b) > 1000 {
			loud++
		}
	}
	require.Equal(t, 6, loud)
}

func TestListenStopsAtPhraseLimit(t *testing.T) {
	src, opener := openTestSource(t)
	l := New(testListenerConfig(), nil)

	pushN(opener, 20, 0.5)
	buf, err := l.Listen(context.Background(), src, 0, 500*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, buf.Blocks, 6)
}

func TestListenDynamicThresholdAdaptsWhileWaiting(t *testing.T) {
	src, opener := openTestSource(t)
	cfg := testListenerConfig()
	cfg.DynamicEnergy = true
	l := New(cfg, nil)

	pushN(opener, 10, 0.01)
	_, err := l.Listen(context.Background(), src, 500*time.Millisecond, 0)
	require.ErrorIs(t, err, ErrWaitTimeout)
	require.Less(t, l.Threshold(), 1000.0)
}

func TestListenHonorsCancellation(t *testing.T) {
	src, _ := openTestSource(t)
	l := New(testListenerConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Listen(ctx, src, 0, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestListenReturnsSourceClosed(t *testing.T) {
	src, opener := openTestSource(t)
	l := New(testListenerConfig(), nil)

	require.NoError(t, src.Close())
	require.True(t, opener.stream.closed)
	require.NoError(t, src.Close())

	_, err := l.Listen(context.Background(), src, 0, 0)
	require.ErrorIs(t, err, ErrSourceClosed)
}

func TestSourceCountsDroppedBlocks(t *testing.T) {
	src, opener := openTestSource(t)

	pushN(opener, sourceQueueDepth+3, 0)
	require.Equal(t, int64(3), src.Dropped())
}

func TestListenKeepsPhraseStartingOnTimeoutBlock(t *testing.T) {
	src, opener := openTestSource(t)
	l := New(testListenerConfig(), nil)

	pushN(opener, 20, 0)
	pushN(opener, 6, 0.5)
	pushN(opener, 5, 0)

	buf, err := l.Listen(context.Background(), src, 2*time.Second, 0)
	require.NoError(t, err)

	loud := 0
	for _, b := range buf.Blocks {
		if Energy(b) > 1000 {
			loud++
		}
	}
	require.Equal(t, 6, loud)
	require.Greater(t, Energy(buf.Blocks[2]), 1000.0)
}

func TestListenDetectsSpeechWithTimeoutShorterThanBlock(t *testing.T) {
	src, opener := openTestSource(t)
	l := New(testListenerConfig(), nil)

	pushN(opener, 6, 0.5)
	pushN(opener, 5, 0)

	buf, err := l.Listen(context.Background(), src, 90*time.Millisecond, 0)
	require.NoError(t, err)
	require.Greater(t, Energy(buf.Blocks[0]), 1000.0)
}
