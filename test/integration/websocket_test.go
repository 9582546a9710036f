// Package integration contains end-to-end tests that exercise the WinChat
// server over real WebSocket connections.
package integration

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/willieinfo/winchat/internal/server"
	"github.com/willieinfo/winchat/test/testhelpers"
)

const eventTimeout = 3 * time.Second

func TestWelcomeMessageOnConnect(t *testing.T) {
	_, ts := testhelpers.StartTestServer(t)
	conn := testhelpers.DialWS(t, ts)

	msg := testhelpers.WaitForMessageText(t, conn, "Welcome to WinChat!", eventTimeout)
	if msg.Name != "Admin" {
		t.Errorf("welcome sender = %q, want Admin", msg.Name)
	}
}

func TestEnterAppPublishesUserList(t *testing.T) {
	_, ts := testhelpers.StartTestServer(t)
	conn := testhelpers.DialWS(t, ts)

	testhelpers.SendEvent(t, conn, server.EventEnterApp, server.EnterAppPayload{Name: "Alice"})

	data := testhelpers.WaitForEvent(t, conn, server.EventUserList, eventTimeout)
	var list server.UserListPayload
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode userList: %v", err)
	}
	if len(list.Users) != 1 || list.Users[0].Name != "Alice" {
		t.Fatalf("userList = %+v, want exactly Alice", list.Users)
	}
	if list.Users[0].Room != nil {
		t.Error("freshly entered user should be on the broadcast feed (room null)")
	}
}

// TestBroadcastAndPendingDelivery walks the full two-user scenario: global
// broadcast reaches both parties, then a private message to a user still on
// the broadcast feed is queued behind a notification and flushed on room
// join.
func TestBroadcastAndPendingDelivery(t *testing.T) {
	_, ts := testhelpers.StartTestServer(t)

	alice := testhelpers.DialWS(t, ts)
	bob := testhelpers.DialWS(t, ts)

	testhelpers.SendEvent(t, alice, server.EventEnterApp, server.EnterAppPayload{Name: "Alice"})
	testhelpers.SendEvent(t, bob, server.EventEnterApp, server.EnterAppPayload{Name: "Bob"})
	testhelpers.WaitForMessageText(t, alice, "You have joined WinChat", eventTimeout)
	testhelpers.WaitForMessageText(t, bob, "You have joined WinChat", eventTimeout)

	// Broadcast: room null reaches every connection, the sender included.
	testhelpers.SendEvent(t, alice, server.EventMessage, server.MessagePayload{Name: "Alice", Text: "hi all"})

	aliceMsg := testhelpers.WaitForMessageText(t, alice, "hi all", eventTimeout)
	bobMsg := testhelpers.WaitForMessageText(t, bob, "hi all", eventTimeout)
	if aliceMsg.Room != nil || bobMsg.Room != nil {
		t.Error("broadcast message should carry room null")
	}

	// Alice opens the private room with Bob and sends while Bob is still
	// on the broadcast feed.
	room := server.PrivateRoomID("Alice", "Bob")
	testhelpers.SendEvent(t, alice, server.EventJoinPrivateRoom,
		server.JoinPrivateRoomPayload{Name: "Alice", TargetUser: "Bob"})
	testhelpers.SendEvent(t, alice, server.EventMessage,
		server.MessagePayload{Name: "Alice", Text: "hey", Room: &room})

	// Sender echo is immediate.
	echo := testhelpers.WaitForMessageText(t, alice, "hey", eventTimeout)
	if echo.Room == nil || *echo.Room != room {
		t.Errorf("echo room = %v, want %s", echo.Room, room)
	}

	// Bob gets a notification, not the message body.
	data := testhelpers.WaitForEvent(t, bob, server.EventNotification, eventTimeout)
	var notif server.NotificationPayload
	if err := json.Unmarshal(data, &notif); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if notif.From != "Alice" || notif.Room != room {
		t.Errorf("notification = %+v, want from Alice in %s", notif, room)
	}
	testhelpers.AssertEventAbsent(t, bob, server.EventMessage, 300*time.Millisecond)

	// Joining the room flushes the queued message exactly once.
	testhelpers.SendEvent(t, bob, server.EventJoinPrivateRoom,
		server.JoinPrivateRoomPayload{Name: "Bob", TargetUser: "Alice"})
	flushed := testhelpers.WaitForMessageText(t, bob, "hey", eventTimeout)
	if flushed.Room == nil || *flushed.Room != room {
		t.Errorf("flushed room = %v, want %s", flushed.Room, room)
	}
	testhelpers.AssertEventAbsent(t, bob, server.EventMessage, 300*time.Millisecond)
}

func TestPrivateMessageLiveWhenBothInRoom(t *testing.T) {
	_, ts := testhelpers.StartTestServer(t)

	alice := testhelpers.DialWS(t, ts)
	bob := testhelpers.DialWS(t, ts)
	testhelpers.SendEvent(t, alice, server.EventEnterApp, server.EnterAppPayload{Name: "Alice"})
	testhelpers.SendEvent(t, bob, server.EventEnterApp, server.EnterAppPayload{Name: "Bob"})
	testhelpers.WaitForMessageText(t, alice, "You have joined WinChat", eventTimeout)
	testhelpers.WaitForMessageText(t, bob, "You have joined WinChat", eventTimeout)

	room := server.PrivateRoomID("Alice", "Bob")
	testhelpers.SendEvent(t, alice, server.EventJoinPrivateRoom,
		server.JoinPrivateRoomPayload{Name: "Alice", TargetUser: "Bob"})
	testhelpers.SendEvent(t, bob, server.EventJoinPrivateRoom,
		server.JoinPrivateRoomPayload{Name: "Bob", TargetUser: "Alice"})

	testhelpers.SendEvent(t, alice, server.EventMessage,
		server.MessagePayload{Name: "Alice", Text: "direct hello", Room: &room})

	got := testhelpers.WaitForMessageText(t, bob, "direct hello", eventTimeout)
	if got.Room == nil || *got.Room != room {
		t.Errorf("live delivery room = %v, want %s", got.Room, room)
	}
	testhelpers.WaitForMessageText(t, alice, "direct hello", eventTimeout)
}

func TestVoiceSignalingRelay(t *testing.T) {
	_, ts := testhelpers.StartTestServer(t)

	alice := testhelpers.DialWS(t, ts)
	bob := testhelpers.DialWS(t, ts)
	testhelpers.SendEvent(t, alice, server.EventEnterApp, server.EnterAppPayload{Name: "Alice"})
	testhelpers.SendEvent(t, bob, server.EventEnterApp, server.EnterAppPayload{Name: "Bob"})
	testhelpers.WaitForMessageText(t, alice, "You have joined WinChat", eventTimeout)
	testhelpers.WaitForMessageText(t, bob, "You have joined WinChat", eventTimeout)

	testhelpers.SendEvent(t, alice, server.EventVoiceOffer, server.SignalPayload{
		Target: "Bob",
		Offer:  json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
	})

	data := testhelpers.WaitForEvent(t, bob, server.EventVoiceOffer, eventTimeout)
	var offer struct {
		From  string          `json:"from"`
		Offer json.RawMessage `json:"offer"`
	}
	if err := json.Unmarshal(data, &offer); err != nil {
		t.Fatalf("decode voice-offer: %v", err)
	}
	if offer.From != "Alice" {
		t.Errorf("offer from = %q, want Alice", offer.From)
	}

	testhelpers.SendEvent(t, bob, server.EventVoiceReject, server.SignalPayload{Target: "Alice"})
	rejected := testhelpers.WaitForEvent(t, alice, server.EventVoiceRejected, eventTimeout)
	var rej struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rejected, &rej); err != nil {
		t.Fatalf("decode voice-rejected: %v", err)
	}
	if rej.Message == "" {
		t.Error("voice-rejected carries no message")
	}
}

func TestTypingActivityForwarded(t *testing.T) {
	_, ts := testhelpers.StartTestServer(t)

	alice := testhelpers.DialWS(t, ts)
	bob := testhelpers.DialWS(t, ts)
	testhelpers.SendEvent(t, alice, server.EventEnterApp, server.EnterAppPayload{Name: "Alice"})
	testhelpers.SendEvent(t, bob, server.EventEnterApp, server.EnterAppPayload{Name: "Bob"})
	testhelpers.WaitForMessageText(t, alice, "You have joined WinChat", eventTimeout)
	testhelpers.WaitForMessageText(t, bob, "You have joined WinChat", eventTimeout)

	testhelpers.SendEvent(t, alice, server.EventActivity, server.ActivityPayload{Name: "Alice"})

	data := testhelpers.WaitForEvent(t, bob, server.EventActivity, eventTimeout)
	var typing server.ActivityPayload
	if err := json.Unmarshal(data, &typing); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	if typing.Name != "Alice" {
		t.Errorf("activity name = %q, want Alice", typing.Name)
	}
	testhelpers.AssertEventAbsent(t, alice, server.EventActivity, 300*time.Millisecond)
}

func TestDisconnectCleansPresence(t *testing.T) {
	hub, ts := testhelpers.StartTestServer(t)

	alice := testhelpers.DialWS(t, ts)
	bob := testhelpers.DialWS(t, ts)
	testhelpers.SendEvent(t, alice, server.EventEnterApp, server.EnterAppPayload{Name: "Alice"})
	testhelpers.SendEvent(t, bob, server.EventEnterApp, server.EnterAppPayload{Name: "Bob"})
	testhelpers.WaitForMessageText(t, alice, "You have joined WinChat", eventTimeout)
	testhelpers.WaitForMessageText(t, bob, "You have joined WinChat", eventTimeout)

	_ = bob.Close()

	testhelpers.WaitForMessageText(t, alice, "Bob has left WinChat", eventTimeout)

	deadline := time.Now().Add(eventTimeout)
	for hub.Registry().Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("registry still has %d entries after disconnect", hub.Registry().Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
