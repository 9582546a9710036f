// Package server implements the application event handlers: entering the
// app, joining private rooms, chat message routing, and typing activity.
package server

import (
	"encoding/json"
	"log"
)

func (h *Hub) handleEnterApp(c *Client, data json.RawMessage) {
	var payload EnterAppPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("Invalid enterApp payload from %s: %v", c.id, err)
		return
	}
	if !ValidDisplayName(payload.Name) {
		log.Printf("Rejected display name %q from %s", payload.Name, c.id)
		h.sendSystemMessage(c, "That name cannot be used. Pick a name without underscores.")
		return
	}

	user := h.registry.Activate(c.id, payload.Name)

	h.sendSystemMessage(c, "You have joined WinChat")
	for _, other := range h.snapshotClients() {
		if other.id == c.id {
			continue
		}
		h.sendSystemMessage(other, user.Name+" has joined WinChat")
	}
	h.publishPresence()
}

// handleJoinPrivateRoom moves a connection into the 1:1 room shared with
// the target user, flushes every message queued for that room in insertion
// order, and republishes presence since pending counts changed.
func (h *Hub) handleJoinPrivateRoom(c *Client, data json.RawMessage) {
	var payload JoinPrivateRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("Invalid joinPrivateRoom payload from %s: %v", c.id, err)
		return
	}

	user, ok := h.registry.LookupByID(c.id)
	if !ok {
		return
	}
	if !ValidDisplayName(payload.TargetUser) {
		log.Printf("Rejected private room target %q from %s", payload.TargetUser, c.id)
		return
	}

	room := PrivateRoomID(user.Name, payload.TargetUser)
	h.registry.SetRoom(c.id, &room)

	for _, msg := range h.pending.Drain(c.id, room) {
		h.sendEvent(c, EventMessage, msg)
	}
	h.publishPresence()
}

// handleMessage routes one chat message: global broadcast when room is
// null, otherwise live delivery, queuing, or sender-only echo depending on
// where the counterpart is.
func (h *Hub) handleMessage(c *Client, data json.RawMessage) {
	var payload MessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("Invalid message payload from %s: %v", c.id, err)
		return
	}
	if payload.Name == "" {
		log.Printf("Dropping message without sender name from %s", c.id)
		return
	}

	msg := BuildMessage(payload.Name, payload.Text, payload.Room, payload.Type, payload.FileName)

	if payload.Room == nil {
		// Global broadcast reaches every connection, the sender
		// included, so the sender's view needs no optimistic echo.
		for _, client := range h.snapshotClients() {
			h.sendEvent(client, EventMessage, msg)
		}
		return
	}

	room := *payload.Room
	counterpartName, ok := CounterpartName(room, payload.Name)
	if !ok {
		log.Printf("Message from %s names room %q it does not belong to", payload.Name, room)
		h.sendEvent(c, EventMessage, msg)
		return
	}

	counterpart, found := h.registry.LookupByName(counterpartName)
	if !found {
		// Counterpart offline or unknown: best-effort echo so the
		// sender's own view stays consistent.
		h.sendEvent(c, EventMessage, msg)
		return
	}

	if counterpart.Room != nil && *counterpart.Room == room {
		if target, ok := h.clients[counterpart.ID]; ok {
			h.sendEvent(target, EventMessage, msg)
		}
		h.sendEvent(c, EventMessage, msg)
		return
	}

	// Counterpart is online but looking elsewhere: queue for room entry
	// and raise a lightweight notification with no message body.
	h.pending.Enqueue(counterpart.ID, msg, room, c.id)
	if target, ok := h.clients[counterpart.ID]; ok {
		h.sendEvent(target, EventNotification, NotificationPayload{From: payload.Name, Room: room})
	}
	h.sendEvent(c, EventMessage, msg)
	h.publishPresence()
}

// handleActivity forwards a typing signal to everyone sharing the sender's
// view, excluding the sender. Activity is ephemeral: never queued, never
// persisted.
func (h *Hub) handleActivity(c *Client, data json.RawMessage) {
	var payload ActivityPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("Invalid activity payload from %s: %v", c.id, err)
		return
	}

	for _, client := range h.snapshotClients() {
		if client.id == c.id {
			continue
		}
		if payload.Room != nil {
			user, ok := h.registry.LookupByID(client.id)
			if !ok || user.Room == nil || *user.Room != *payload.Room {
				continue
			}
		}
		h.sendEvent(client, EventActivity, payload)
	}
}
