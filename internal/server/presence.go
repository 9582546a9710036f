// Package server builds and publishes the presence view: every online user
// with their pending-message counts, merged with the external directory.
package server

// presenceSnapshot recomputes the full user list. Live registry entries
// come first in activation order; directory names without a live
// connection follow with no id or room. Union is by name and live data
// always wins.
func (h *Hub) presenceSnapshot() UserListPayload {
	liveUsers := h.registry.All()

	users := make([]UserInfo, 0, len(liveUsers)+len(h.dirUsers))
	liveNames := make(map[string]struct{}, len(liveUsers))
	for _, u := range liveUsers {
		liveNames[u.Name] = struct{}{}
		users = append(users, UserInfo{ID: u.ID, Name: u.Name, Room: u.Room})
	}
	for _, d := range h.dirUsers {
		if _, live := liveNames[d.Name]; live {
			continue
		}
		users = append(users, UserInfo{Name: d.Name})
	}

	counts := make(map[string]map[string]int)
	for _, u := range liveUsers {
		if c := h.pending.CountsByCounterpart(u.ID, u.Name); len(c) > 0 {
			counts[u.Name] = c
		}
	}

	return UserListPayload{Users: users, PendingCounts: counts}
}

// publishPresence emits the recomputed snapshot to every connection. Called
// after each state-changing event: enterApp, room join, disconnect, and
// message enqueue. No batching; one event, one republish.
func (h *Hub) publishPresence() {
	snapshot := h.presenceSnapshot()
	for _, c := range h.snapshotClients() {
		h.sendEvent(c, EventUserList, snapshot)
	}
}
