package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// newFeedServer streams the given events to each connecting client and then
// holds the connection open.
func newFeedServer(t *testing.T, events []Event) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		for _, evt := range events {
			require.NoError(t, conn.WriteJSON(evt))
		}
		// Keep the socket open until the client or server goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForSnapshot(t *testing.T, f *Feed, want Update) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.Snapshot() == want
	}, 2*time.Second, 10*time.Millisecond, "snapshot never reached %+v", want)
}

func TestFeedAccumulatesFinalsAndPartials(t *testing.T) {
	srv := newFeedServer(t, []Event{
		{Text: "paciente com", Partial: true},
		{Text: "paciente com dor", Partial: true},
		{Text: "paciente com dor no peito", Partial: false},
		{Text: "há duas", Partial: true},
	})

	f := NewFeed(wsURL(srv))
	require.NoError(t, f.Start(context.Background()))
	defer f.Stop()

	waitForSnapshot(t, f, Update{Final: "paciente com dor no peito", Partial: "há duas"})
	assert.True(t, f.Recording())
}

func TestFeedJoinsMultipleFinals(t *testing.T) {
	srv := newFeedServer(t, []Event{
		{Text: "primeira frase"},
		{Text: "segunda frase"},
	})

	f := NewFeed(wsURL(srv))
	require.NoError(t, f.Start(context.Background()))
	defer f.Stop()

	waitForSnapshot(t, f, Update{Final: "primeira frase\nsegunda frase"})
}

func TestFeedStopKeepsTextResetClearsIt(t *testing.T) {
	srv := newFeedServer(t, []Event{{Text: "frase final"}})

	f := NewFeed(wsURL(srv))
	require.NoError(t, f.Start(context.Background()))
	waitForSnapshot(t, f, Update{Final: "frase final"})

	f.Stop()
	assert.False(t, f.Recording())
	assert.Equal(t, Update{Final: "frase final"}, f.Snapshot())

	f.Reset()
	assert.Equal(t, Update{}, f.Snapshot())
}

func TestFeedStartClearsPreviousRun(t *testing.T) {
	srv := newFeedServer(t, []Event{{Text: "corrida um"}})

	f := NewFeed(wsURL(srv))
	require.NoError(t, f.Start(context.Background()))
	waitForSnapshot(t, f, Update{Final: "corrida um"})
	f.Stop()

	require.NoError(t, f.Start(context.Background()))
	defer f.Stop()
	waitForSnapshot(t, f, Update{Final: "corrida um"})
}

func TestFeedUpdatesChannelIsLatestWins(t *testing.T) {
	srv := newFeedServer(t, []Event{
		{Text: "um"},
		{Text: "dois"},
		{Text: "três"},
	})

	f := NewFeed(wsURL(srv))
	require.NoError(t, f.Start(context.Background()))
	defer f.Stop()

	waitForSnapshot(t, f, Update{Final: "um\ndois\ntrês"})

	// Nothing was consumed while three events arrived; the buffered update
	// must be the newest state.
	select {
	case u := <-f.Updates():
		assert.Equal(t, "um\ndois\ntrês", u.Final)
	case <-time.After(time.Second):
		t.Fatal("no update published")
	}
}

func TestFeedDialFailure(t *testing.T) {
	f := NewFeed("ws://127.0.0.1:1/nope")
	err := f.Start(context.Background())
	require.Error(t, err)
	assert.False(t, f.Recording())
}

func TestFeedStartWhileRunningIsNoop(t *testing.T) {
	srv := newFeedServer(t, []Event{{Text: "frase"}})

	f := NewFeed(wsURL(srv))
	require.NoError(t, f.Start(context.Background()))
	defer f.Stop()
	waitForSnapshot(t, f, Update{Final: "frase"})

	// A second Start on a running feed neither reconnects nor clears text.
	require.NoError(t, f.Start(context.Background()))
	assert.Equal(t, Update{Final: "frase"}, f.Snapshot())
}
