package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestClient(hub *Hub, orgID uuid.UUID) *Client {
	return &Client{
		ID:     uuid.New().String(),
		OrgID:  orgID,
		UserID: uuid.New(),
		hub:    hub,
		send:   make(chan WSMessage, 8),
	}
}

func TestBroadcastStaysInRoom(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	orgA := uuid.New()
	orgB := uuid.New()

	a1 := newTestClient(hub, orgA)
	a2 := newTestClient(hub, orgA)
	b1 := newTestClient(hub, orgB)
	for _, c := range []*Client{a1, a2, b1} {
		hub.Register(c)
	}

	hub.BroadcastToRoom(orgA, "chat_message", map[string]string{"text": "hi"})

	for _, c := range []*Client{a1, a2} {
		select {
		case msg := <-c.send:
			if msg.Event != "chat_message" {
				t.Fatalf("event = %s, want chat_message", msg.Event)
			}
			var payload map[string]string
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if payload["text"] != "hi" {
				t.Fatalf("text = %q", payload["text"])
			}
		case <-time.After(time.Second):
			t.Fatal("room member did not receive broadcast")
		}
	}

	select {
	case msg := <-b1.send:
		t.Fatalf("other organization received %s", msg.Event)
	default:
	}
}

type capturingPublisher struct {
	events []string
}

func (p *capturingPublisher) PublishRoomEvent(_ uuid.UUID, event string, _ []byte) error {
	p.events = append(p.events, event)
	return nil
}

// chat_message and typing must go through Redis only: the instance's own
// subscription performs the local broadcast, so a direct local send would
// deliver doubles to clients on the publishing instance.
func TestClientEventsPublishWithoutLocalEcho(t *testing.T) {
	pub := &capturingPublisher{}
	hub := NewHub(zap.NewNop(), pub, nil)
	org := uuid.New()

	sender := newTestClient(hub, org)
	peer := newTestClient(hub, org)
	hub.Register(sender)
	hub.Register(peer)

	data, _ := json.Marshal(map[string]string{"text": "hi"})
	for _, event := range []string{"chat_message", "typing"} {
		sender.handleEvent(WSMessage{Event: event, Data: data})
	}

	if len(pub.events) != 2 || pub.events[0] != "chat_message" || pub.events[1] != "typing" {
		t.Fatalf("published events = %v, want [chat_message typing]", pub.events)
	}
	for _, c := range []*Client{sender, peer} {
		select {
		case msg := <-c.send:
			t.Fatalf("local echo delivered %s", msg.Event)
		default:
		}
	}
}

func TestRegisterUnregisterCounts(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	orgID := uuid.New()

	c1 := newTestClient(hub, orgID)
	c2 := newTestClient(hub, orgID)
	hub.Register(c1)
	hub.Register(c2)
	if n := hub.RoomCount(orgID); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	hub.Unregister(c1)
	if n := hub.RoomCount(orgID); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	hub.Unregister(c2)
	if n := hub.RoomCount(orgID); n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}
}
