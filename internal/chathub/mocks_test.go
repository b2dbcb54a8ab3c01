package chathub_test

import (
	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/models"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockGateway is a testify mock implementation of the storage.Gateway
// interface, shared by the chathub tests.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) LoadMessages(chatID string) ([]models.ChatMessage, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockGateway) AppendMessage(msg *models.ChatMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockGateway) SaveTranscript(chatID string, msgs []models.ChatMessage, ownerID, title string) error {
	args := m.Called(chatID, msgs, ownerID, title)
	return args.Error(0)
}

func (m *MockGateway) LoadSavedChat(chatID, ownerID string) (*models.SavedChat, error) {
	args := m.Called(chatID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SavedChat), args.Error(1)
}

func (m *MockGateway) UpsertSavedChat(chatID, ownerID, title string) error {
	args := m.Called(chatID, ownerID, title)
	return args.Error(0)
}

func (m *MockGateway) ListSavedChats(ownerID string) (map[string]string, error) {
	args := m.Called(ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockGateway) MarkSessionActive(chatID string) error {
	args := m.Called(chatID)
	return args.Error(0)
}

func (m *MockGateway) MarkSessionClosed(chatID string) error {
	args := m.Called(chatID)
	return args.Error(0)
}

func (m *MockGateway) ActiveSessionIDs() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockGateway) AddSearchingUser(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockGateway) RemoveSearchingUser(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockGateway) SearchingUsers() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// newQuietGateway returns a mock with the bookkeeping calls every flow
// makes already allowed, so tests only declare what they care about.
func newQuietGateway() *MockGateway {
	g := new(MockGateway)
	g.On("MarkSessionActive", mock.Anything).Return(nil).Maybe()
	g.On("MarkSessionClosed", mock.Anything).Return(nil).Maybe()
	g.On("AddSearchingUser", mock.Anything).Return(nil).Maybe()
	g.On("RemoveSearchingUser", mock.Anything).Return(nil).Maybe()
	return g
}

// fakeConn is a test double for the chathub.Conn interface that records
// every payload it is asked to deliver.
type fakeConn struct {
	id string

	mu       sync.Mutex
	payloads [][]byte
	failSend bool
	closed   bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) UserID() string { return c.id }

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend || c.closed {
		return chathub.ErrConnectionLost
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	c.payloads = append(c.payloads, buf)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// backlog decodes the first payload (the attach replay) as a backlog array.
func (c *fakeConn) backlog(t *testing.T) []models.PerspectiveMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.payloads) == 0 {
		t.Fatal("no backlog payload was delivered")
	}
	var backlog []models.PerspectiveMessage
	if err := json.Unmarshal(c.payloads[0], &backlog); err != nil {
		t.Fatalf("backlog payload is not a message array: %v", err)
	}
	return backlog
}

// events decodes every payload after the backlog replay as a ChatEvent.
func (c *fakeConn) events(t *testing.T) []models.ChatEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var events []models.ChatEvent
	for _, payload := range c.payloads[1:] {
		var ev models.ChatEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			t.Fatalf("payload is not a chat event: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

// waitForSearching blocks until the user occupies the pending slot.
func waitForSearching(t *testing.T, b *chathub.MatchBroker, userID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.Searching(userID) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("user %s never reached the pending slot", userID)
}
