// Package server defines the wire-level event and message types exchanged
// between the WinChat server and its clients.
package server

import (
	"encoding/json"
	"strings"
	"time"
)

// Inbound event names accepted from clients.
const (
	EventEnterApp        = "enterApp"
	EventJoinPrivateRoom = "joinPrivateRoom"
	EventMessage         = "message"
	EventActivity        = "activity"
	EventRequestUserList = "requestUserList"
	EventVoiceOffer      = "voice-offer"
	EventVoiceAnswer     = "voice-answer"
	EventIceCandidate    = "ice-candidate"
	EventVoiceReject     = "voice-reject"
)

// Outbound event names emitted to clients.
const (
	EventUserList      = "userList"
	EventNotification  = "notification"
	EventVoiceRejected = "voice-rejected"
)

// Envelope is the framing for every event in both directions: an event name
// plus an event-specific JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is a chat message as delivered to clients. Date and Time are
// assigned server-side at receipt so every observer shares a single
// ordering reference; clients never supply them. A nil Room marks a
// broadcast message.
type Message struct {
	Name     string  `json:"name"`
	Text     string  `json:"text"`
	Date     string  `json:"date"`
	Time     string  `json:"time"`
	Room     *string `json:"room"`
	Type     string  `json:"type"`
	FileName string  `json:"fileName"`
}

// BuildMessage constructs an immutable Message with a server timestamp.
// An empty type defaults to "text".
func BuildMessage(name, text string, room *string, msgType, fileName string) Message {
	if msgType == "" {
		msgType = "text"
	}
	now := time.Now()
	return Message{
		Name:     name,
		Text:     text,
		Date:     now.Format("1/2/2006"),
		Time:     now.Format("3:04:05 PM"),
		Room:     room,
		Type:     msgType,
		FileName: fileName,
	}
}

// EnterAppPayload carries the self-asserted display name on enterApp.
type EnterAppPayload struct {
	Name string `json:"name"`
}

// JoinPrivateRoomPayload requests entry into the 1:1 room shared with
// TargetUser.
type JoinPrivateRoomPayload struct {
	Name       string `json:"name"`
	TargetUser string `json:"targetUser"`
}

// MessagePayload is the client-supplied portion of a chat message.
type MessagePayload struct {
	Name     string  `json:"name"`
	Text     string  `json:"text"`
	Room     *string `json:"room"`
	Type     string  `json:"type"`
	FileName string  `json:"fileName"`
}

// ActivityPayload is the ephemeral typing signal. It is forwarded to room
// members only, never stored or queued.
type ActivityPayload struct {
	Name string  `json:"name"`
	Room *string `json:"room"`
}

// SignalPayload addresses a voice-call signaling frame to a display name.
// Offer, Answer and Candidate bodies are relayed verbatim.
type SignalPayload struct {
	Target    string          `json:"target"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// NotificationPayload tells a client that a message was queued for it in a
// room it is not currently viewing. It carries no message body.
type NotificationPayload struct {
	From string `json:"from"`
	Room string `json:"room"`
}

// UserInfo is one entry of a presence snapshot. ID is empty for users known
// only from the external directory.
type UserInfo struct {
	ID   string  `json:"id,omitempty"`
	Name string  `json:"name"`
	Room *string `json:"room"`
}

// UserListPayload is the full presence snapshot republished after every
// state-changing event: all users plus per-user pending-message counts
// keyed by counterpart name.
type UserListPayload struct {
	Users         []UserInfo                `json:"users"`
	PendingCounts map[string]map[string]int `json:"pendingCounts"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
