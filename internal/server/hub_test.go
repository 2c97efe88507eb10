package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rbright/voxscribe/internal/fsm"
	"github.com/rbright/voxscribe/internal/session"
)

func TestHubStreamsSessionEvents(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	httpServer := httptest.NewServer(New(Options{Hub: hub, StaticDir: t.TempDir()}).Handler())
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Status(session.StatusRecording, "Recording...")
	hub.Output("Transcription: hello")
	hub.State(session.Snapshot{Mode: session.ModeManual, State: fsm.StateIdle, Turns: 1})
	hub.ClearOutput()

	var got []Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for len(got) < 4 {
		var event Event
		require.NoError(t, conn.ReadJSON(&event))
		got = append(got, event)
	}

	require.Equal(t, EventStatus, got[0].Type)
	require.Equal(t, "recording", got[0].Data["kind"])
	require.Equal(t, "Recording...", got[0].Data["message"])
	require.NotEmpty(t, got[0].ID)
	require.Equal(t, EventOutput, got[1].Type)
	require.Equal(t, "Transcription: hello", got[1].Data["line"])
	require.Equal(t, EventState, got[2].Type)
	require.EqualValues(t, 1, got[2].Data["turns"])
	require.Equal(t, EventClear, got[3].Type)
	require.NotEqual(t, got[0].ID, got[1].ID)
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < broadcastQueue*2; i++ {
		hub.Output("line")
	}
	require.Equal(t, 0, hub.Clients())
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	httpServer := httptest.NewServer(hub)
	defer httpServer.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(httpServer.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}
