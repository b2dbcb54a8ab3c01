package chathub_test

import (
	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/models"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, gateway *MockGateway) *chathub.ChatSession {
	t.Helper()
	registry := chathub.NewSessionRegistry(gateway)
	return registry.Create()
}

// TestIncomingMessageReachesPeerWithPerspective covers the core chat
// scenario: A sends "hi", B receives exactly "hi" marked ANON, A's own
// backlog shows it as YOU.
func TestIncomingMessageReachesPeerWithPerspective(t *testing.T) {
	gateway := newQuietGateway()
	sess := newTestSession(t, gateway)

	connA := newFakeConn("user_a")
	connB := newFakeConn("user_b")
	sess.Attach("user_a", connA)
	sess.Attach("user_b", connB)

	sess.HandleIncoming("user_a", "hi")

	eventsB := connB.events(t)
	require.Len(t, eventsB, 1)
	assert.Equal(t, models.EventMessage, eventsB[0].Type)
	assert.Equal(t, models.FromAnon, eventsB[0].From)
	assert.Equal(t, "hi", eventsB[0].Text)
	assert.Equal(t, int64(1), eventsB[0].MessageID)

	assert.Empty(t, connA.events(t), "the sender must not receive an echo")

	assert.Equal(t, []models.PerspectiveMessage{
		{MessageID: 1, From: models.FromYou, Text: "hi"},
	}, sess.Backlog("user_a"))
	assert.Equal(t, []models.PerspectiveMessage{
		{MessageID: 1, From: models.FromAnon, Text: "hi"},
	}, sess.Backlog("user_b"))
}

// TestMessageIDsAreStrictlyIncreasing verifies ids start at 1 and the
// recipient observes messages in submission order.
func TestMessageIDsAreStrictlyIncreasing(t *testing.T) {
	gateway := newQuietGateway()
	sess := newTestSession(t, gateway)

	connA := newFakeConn("user_a")
	connB := newFakeConn("user_b")
	sess.Attach("user_a", connA)
	sess.Attach("user_b", connB)

	for i := 1; i <= 5; i++ {
		sess.HandleIncoming("user_a", fmt.Sprintf("message %d", i))
	}

	events := connB.events(t)
	require.Len(t, events, 5)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.MessageID)
		assert.Equal(t, fmt.Sprintf("message %d", i+1), ev.Text)
	}
}

// TestAttachReplaysBacklog verifies a late joiner gets the existing
// history from their own point of view.
func TestAttachReplaysBacklog(t *testing.T) {
	gateway := newQuietGateway()
	sess := newTestSession(t, gateway)

	connA := newFakeConn("user_a")
	sess.Attach("user_a", connA)
	sess.HandleIncoming("user_a", "anyone there?")

	connB := newFakeConn("user_b")
	sess.Attach("user_b", connB)

	assert.Equal(t, []models.PerspectiveMessage{
		{MessageID: 1, From: models.FromAnon, Text: "anyone there?"},
	}, connB.backlog(t))
	assert.Equal(t, []models.PerspectiveMessage{}, connA.backlog(t),
		"the first joiner saw an empty backlog")
}

// TestAttachReplayIsNotOvertakenByBroadcast races a join against an
// incoming message. The joiner's first payload must be the backlog
// replay, and every broadcast it then receives must continue right
// after the replayed history: a message concurrent with the attach is
// either inside the backlog or delivered after it, never before and
// never lost.
func TestAttachReplayIsNotOvertakenByBroadcast(t *testing.T) {
	for i := 0; i < 200; i++ {
		gateway := newQuietGateway()
		sess := newTestSession(t, gateway)

		connB := newFakeConn("user_b")
		sess.Attach("user_b", connB)
		sess.HandleIncoming("user_b", "opening line")

		connA := newFakeConn("user_a")
		done := make(chan struct{})
		go func() {
			defer close(done)
			sess.HandleIncoming("user_b", "racing line")
		}()
		sess.Attach("user_a", connA)
		<-done

		// backlog fails the test if the first payload is a chat event.
		backlog := connA.backlog(t)
		require.NotEmpty(t, backlog)
		lastSeen := backlog[len(backlog)-1].MessageID
		for _, ev := range connA.events(t) {
			require.Equal(t, lastSeen+1, ev.MessageID,
				"broadcast must continue right after the replayed backlog")
			lastSeen = ev.MessageID
		}
		require.Equal(t, int64(2), lastSeen,
			"the racing message must reach the joiner exactly once")
	}
}

// TestBroadcastFailureDetachesPeerSynchronously verifies a failed send
// degrades to a detach of that one recipient without aborting the
// sender's call, and the remaining participant is notified.
func TestBroadcastFailureDetachesPeerSynchronously(t *testing.T) {
	gateway := newQuietGateway()
	sess := newTestSession(t, gateway)

	connA := newFakeConn("user_a")
	connB := newFakeConn("user_b")
	sess.Attach("user_a", connA)
	sess.Attach("user_b", connB)

	connB.mu.Lock()
	connB.failSend = true
	connB.mu.Unlock()

	sess.HandleIncoming("user_a", "hello?")

	assert.True(t, connB.isClosed(), "the dead connection must be closed")
	assert.False(t, sess.Empty(), "the sender stays attached")

	events := connA.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventPeerLeft, events[0].Type)
	assert.Equal(t, "ANON HAD LEFT", events[0].Text)

	// The backlog keeps the message even though delivery failed.
	assert.Len(t, sess.Backlog("user_a"), 1)
}

// TestDetachNotifiesRemainingPeer mirrors a voluntary leave.
func TestDetachNotifiesRemainingPeer(t *testing.T) {
	gateway := newQuietGateway()
	sess := newTestSession(t, gateway)

	connA := newFakeConn("user_a")
	connB := newFakeConn("user_b")
	sess.Attach("user_a", connA)
	sess.Attach("user_b", connB)

	sess.Detach("user_b", connB)

	events := connA.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventPeerLeft, events[0].Type)

	assert.False(t, sess.Empty())
	sess.Detach("user_a", connA)
	assert.True(t, sess.Empty())
}

// TestReattachReplacesPreviousConnection covers the reconnect decision:
// the new connection wins and the old one is closed.
func TestReattachReplacesPreviousConnection(t *testing.T) {
	gateway := newQuietGateway()
	sess := newTestSession(t, gateway)

	connA := newFakeConn("user_a")
	connB := newFakeConn("user_b")
	sess.Attach("user_a", connA)
	sess.Attach("user_b", connB)

	reconnA := newFakeConn("user_a")
	sess.Attach("user_a", reconnA)

	assert.True(t, connA.isClosed(), "replaced connection must be closed")

	// A detach issued for the stale connection must not evict the new one.
	sess.Detach("user_a", connA)
	assert.False(t, sess.Empty())

	sess.HandleIncoming("user_b", "still there?")
	events := reconnA.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, "still there?", events[0].Text)
}

// TestSaveFirstTimePersistsWholeBacklog verifies the first save writes
// the transcript plus the record, and a later save by the other
// participant only upserts the title.
func TestSaveFirstTimePersistsWholeBacklog(t *testing.T) {
	gateway := newQuietGateway()
	sess := newTestSession(t, gateway)

	connA := newFakeConn("user_a")
	connB := newFakeConn("user_b")
	sess.Attach("user_a", connA)
	sess.Attach("user_b", connB)
	sess.HandleIncoming("user_a", "hi")
	sess.HandleIncoming("user_b", "hello")

	gateway.On("SaveTranscript", sess.ID(), mock.MatchedBy(func(msgs []models.ChatMessage) bool {
		return len(msgs) == 2 && msgs[0].MessageID == 1 && msgs[1].MessageID == 2
	}), "user_a", "first title").Return(nil).Once()

	require.NoError(t, sess.Save("user_a", "first title"))

	gateway.On("UpsertSavedChat", sess.ID(), "user_b", "other title").Return(nil).Once()
	require.NoError(t, sess.Save("user_b", "other title"))

	gateway.AssertExpectations(t)
	gateway.AssertNumberOfCalls(t, "SaveTranscript", 1)
}

// TestSavedSessionPersistsNewMessages verifies messages arriving after
// a save are appended to storage as part of handling.
func TestSavedSessionPersistsNewMessages(t *testing.T) {
	gateway := newQuietGateway()
	sess := newTestSession(t, gateway)

	connA := newFakeConn("user_a")
	connB := newFakeConn("user_b")
	sess.Attach("user_a", connA)
	sess.Attach("user_b", connB)

	gateway.On("SaveTranscript", sess.ID(), mock.Anything, "user_a", "kept").Return(nil).Once()
	require.NoError(t, sess.Save("user_a", "kept"))

	gateway.On("AppendMessage", mock.MatchedBy(func(msg *models.ChatMessage) bool {
		return msg.ChatID == sess.ID() && msg.MessageID == 1 && msg.Text == "persisted too"
	})).Return(nil).Once()

	sess.HandleIncoming("user_a", "persisted too")
	gateway.AssertExpectations(t)
}

// TestPersistFailureDoesNotBlockBroadcast verifies the explicit policy:
// a failing AppendMessage is logged and dropped, delivery still happens.
func TestPersistFailureDoesNotBlockBroadcast(t *testing.T) {
	gateway := newQuietGateway()
	sess := newTestSession(t, gateway)

	connA := newFakeConn("user_a")
	connB := newFakeConn("user_b")
	sess.Attach("user_a", connA)
	sess.Attach("user_b", connB)

	gateway.On("SaveTranscript", sess.ID(), mock.Anything, "user_a", "flaky").Return(nil).Once()
	require.NoError(t, sess.Save("user_a", "flaky"))

	gateway.On("AppendMessage", mock.Anything).Return(errors.New("db down"))

	sess.HandleIncoming("user_a", "hi")

	events := connB.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, "hi", events[0].Text)
}
