package hub

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubStreamsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go h.Run(ctx)

	server := httptest.NewServer(h)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.Broadcast("relation_added", map[string]string{"type": "relation_added", "edition": "uuid:e"})
	h.Broadcast("relation_removed", map[string]string{"type": "relation_removed", "edition": "uuid:e"})

	first := readFrame(t, reader)
	assert.Equal(t, "1", first["id"])
	assert.Equal(t, "relation_added", first["event"])
	assert.JSONEq(t, `{"type":"relation_added","edition":"uuid:e"}`, first["data"])

	second := readFrame(t, reader)
	assert.Equal(t, "2", second["id"])
	assert.Equal(t, "relation_removed", second["event"])
}

// readFrame reads one SSE frame, skipping comment lines, into field -> value
func readFrame(t *testing.T, reader *bufio.Reader) map[string]string {
	t.Helper()
	frame := map[string]string{}
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && len(frame) > 0:
			return frame
		case line == "", strings.HasPrefix(line, ":"):
			continue
		}
		field, value, _ := strings.Cut(line, ": ")
		frame[field] = value
	}
}

func TestHubStopDisconnectsClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go h.Run(ctx)

	server := httptest.NewServer(h)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()

	done := make(chan struct{})
	go func() {
		io.Copy(io.Discard, resp.Body)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream was not closed after hub stopped")
	}
	assert.Zero(t, h.ClientCount())
}
