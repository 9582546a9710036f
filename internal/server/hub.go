// Package server coordinates the WinChat presence-and-delivery engine: the
// Hub owns the connection registry and pending-delivery queue and serializes
// every state-changing event through a single loop.
package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/willieinfo/winchat/internal/directory"
)

// inboundEvent is one parsed client event awaiting processing by the hub
// loop.
type inboundEvent struct {
	client   *Client
	envelope Envelope
}

// Hub routes every connection and chat event through one goroutine so that
// registry and queue mutations never interleave mid-update. Live delivery,
// offline queuing, presence publication, and signaling relay all happen
// inside Run.
type Hub struct {
	cfg      *Config
	registry *Registry
	pending  *PendingQueue

	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent

	fetcher    directory.Fetcher
	dirUpdates chan []directory.User
	dirUsers   []directory.User

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a Hub. fetcher may be nil, in which case the presence view
// shows live connections only.
func NewHub(cfg *Config, fetcher directory.Fetcher) *Hub {
	if cfg == nil {
		cfg = NewConfig()
	}
	cfg.sanitize()

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:        cfg,
		registry:   NewRegistry(),
		pending:    NewPendingQueue(cfg.MaxPendingPerUser),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent, 64),
		fetcher:    fetcher,
		dirUpdates: make(chan []directory.User, 1),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Registry exposes the connection registry for inspection.
func (h *Hub) Registry() *Registry { return h.registry }

// Pending exposes the pending-delivery queue for inspection.
func (h *Hub) Pending() *PendingQueue { return h.pending }

// Register hands a new client to the hub loop.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
	}
}

// Run is the hub's main event loop. It should be called once, in its own
// goroutine; it returns when Shutdown is initiated.
func (h *Hub) Run() {
	defer close(h.done)

	if h.fetcher != nil {
		h.wg.Add(1)
		go h.refreshDirectory()
	}

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.dropClient(client)

		case ev := <-h.inbound:
			h.dispatch(ev.client, ev.envelope)

		case users := <-h.dirUpdates:
			h.dirUsers = users
			h.publishPresence()
		}
	}
}

func (h *Hub) addClient(c *Client) {
	if c == nil {
		log.Printf("Received nil client registration; skipping")
		return
	}

	h.clients[c.id] = c
	log.Printf("Client %s connected from %s. Total connections: %d", c.id, c.addr, len(h.clients))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()

	h.sendSystemMessage(c, "Welcome to WinChat!")
}

// dropClient tears down all state for a connection: registry entry, queued
// messages, and the client itself, then announces the departure. Idempotent;
// late unregisters for unknown clients are no-ops.
func (h *Hub) dropClient(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)

	user, wasRegistered := h.registry.LookupByID(c.id)
	h.registry.Remove(c.id)
	h.pending.DropRecipient(c.id)

	log.Printf("Client %s disconnected. Total connections: %d", c.id, len(h.clients))

	if wasRegistered {
		h.broadcastSystemMessage(user.Name + " has left WinChat")
		h.publishPresence()
	}
}

// dispatch handles one inbound event to completion. A malformed payload
// rejects that event alone: nothing is mutated and the connection stays up.
func (h *Hub) dispatch(c *Client, env Envelope) {
	if _, ok := h.clients[c.id]; !ok {
		// Event raced with disconnect; drop it.
		return
	}

	switch env.Event {
	case EventEnterApp:
		h.handleEnterApp(c, env.Data)
	case EventJoinPrivateRoom:
		h.handleJoinPrivateRoom(c, env.Data)
	case EventMessage:
		h.handleMessage(c, env.Data)
	case EventActivity:
		h.handleActivity(c, env.Data)
	case EventRequestUserList:
		h.sendEvent(c, EventUserList, h.presenceSnapshot())
	case EventVoiceOffer, EventVoiceAnswer, EventIceCandidate, EventVoiceReject:
		h.handleSignal(c, env.Event, env.Data)
	default:
		log.Printf("Unknown event %q from client %s", env.Event, c.id)
	}
}

// sendEvent marshals an envelope and queues it on one client's send
// channel. A client whose buffer is full is torn down, matching the
// slow-consumer policy of the write pump.
func (h *Hub) sendEvent(c *Client, event string, payload any) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling %s payload: %v", event, err)
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("Error marshaling %s envelope: %v", event, err)
		return
	}

	select {
	case c.send <- frame:
	default:
		log.Printf("Client %s send buffer full; dropping connection", c.id)
		h.dropClient(c)
	}
}

func (h *Hub) sendSystemMessage(c *Client, text string) {
	h.sendEvent(c, EventMessage, BuildMessage(h.cfg.SystemName, text, nil, "text", ""))
}

func (h *Hub) broadcastSystemMessage(text string) {
	msg := BuildMessage(h.cfg.SystemName, text, nil, "text", "")
	for _, c := range h.snapshotClients() {
		h.sendEvent(c, EventMessage, msg)
	}
}

// snapshotClients copies the client set so handlers can iterate while
// sendEvent may drop failed clients from the map.
func (h *Hub) snapshotClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// refreshDirectory periodically pulls today's logged-in names from the
// external directory and feeds them to the hub loop. It runs outside the
// loop so a slow directory never stalls message routing.
func (h *Hub) refreshDirectory() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.DirectoryRefresh)
	defer ticker.Stop()

	for {
		h.fetchDirectoryOnce()
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *Hub) fetchDirectoryOnce() {
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	users, err := h.fetcher.ActiveUsers(ctx, startOfDay)
	if err != nil {
		log.Printf("Directory lookup failed: %v", err)
		users = nil
	}

	select {
	case h.dirUpdates <- users:
	case <-h.ctx.Done():
	default:
		// A previous update is still queued; the next tick retries.
	}
}

func (h *Hub) closeAllClients() {
	log.Println("Shutting down all client connections...")

	count := 0
	for _, c := range h.clients {
		if c.conn != nil {
			if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
				log.Printf("Error closing client connection from %s: %v", c.addr, err)
			}
		}
		count++
	}

	log.Printf("Closed %d client connections", count)
}

// Shutdown initiates graceful shutdown of the hub and waits for all
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
