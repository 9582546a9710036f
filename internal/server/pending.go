// Package server buffers messages for recipients who are not currently
// viewing the conversation they were sent to, via the PendingQueue type.
package server

import "sync"

// PendingEntry is one queued message awaiting delivery to a recipient.
type PendingEntry struct {
	Message  Message
	Room     string
	SenderID string
}

// PendingQueue holds per-recipient ordered buffers of undelivered private
// messages. Entries for a (recipient, room) pair are drained together, in
// insertion order, when the recipient joins that room. Each recipient's
// buffer is capped; when full, the oldest entry is evicted to admit the
// newest.
type PendingQueue struct {
	mu           sync.RWMutex
	entries      map[string][]PendingEntry
	maxPerUser   int
	evictedTotal uint64
}

// NewPendingQueue creates a queue capping each recipient's buffer at
// maxPerUser entries. A non-positive cap disables the bound.
func NewPendingQueue(maxPerUser int) *PendingQueue {
	return &PendingQueue{
		entries:    make(map[string][]PendingEntry),
		maxPerUser: maxPerUser,
	}
}

// Enqueue appends a message to a recipient's buffer, evicting the
// recipient's oldest entry if the buffer is at capacity.
func (q *PendingQueue) Enqueue(recipientID string, msg Message, room, senderID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	buf := q.entries[recipientID]
	if q.maxPerUser > 0 && len(buf) >= q.maxPerUser {
		copy(buf, buf[1:])
		buf = buf[:len(buf)-1]
		q.evictedTotal++
	}
	q.entries[recipientID] = append(buf, PendingEntry{Message: msg, Room: room, SenderID: senderID})
}

// Drain returns all messages queued for the exact (recipient, room) pair in
// insertion order and atomically removes them. Entries for the recipient's
// other rooms are untouched.
func (q *PendingQueue) Drain(recipientID, room string) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	buf, ok := q.entries[recipientID]
	if !ok {
		return nil
	}

	var drained []Message
	kept := buf[:0]
	for _, entry := range buf {
		if entry.Room == room {
			drained = append(drained, entry.Message)
		} else {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		delete(q.entries, recipientID)
	} else {
		q.entries[recipientID] = kept
	}
	return drained
}

// CountsByCounterpart returns, for one recipient, how many messages are
// queued per counterpart name. Recomputed on demand; never cached.
func (q *PendingQueue) CountsByCounterpart(recipientID, recipientName string) map[string]int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	buf := q.entries[recipientID]
	if len(buf) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, entry := range buf {
		if counterpart, ok := CounterpartName(entry.Room, recipientName); ok {
			counts[counterpart]++
		}
	}
	return counts
}

// DropRecipient discards every entry queued for a recipient. Called on
// disconnect; queued messages are not resumable across connections.
func (q *PendingQueue) DropRecipient(recipientID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.entries, recipientID)
}

// PendingFor returns the number of entries queued for a recipient across
// all rooms.
func (q *PendingQueue) PendingFor(recipientID string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return len(q.entries[recipientID])
}

// EvictedTotal returns how many entries have been evicted by the
// per-recipient cap since startup.
func (q *PendingQueue) EvictedTotal() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.evictedTotal
}
