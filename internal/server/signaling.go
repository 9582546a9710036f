// Package server relays WebRTC voice-call signaling frames between two
// named peers. The server forwards payloads verbatim and tracks no call
// state; ringing, in-call, and ended are inferred by the endpoints.
package server

import (
	"encoding/json"
	"log"
)

type voiceOfferOut struct {
	From  string          `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

type voiceAnswerOut struct {
	Answer json.RawMessage `json:"answer"`
}

type iceCandidateOut struct {
	Candidate json.RawMessage `json:"candidate"`
}

type voiceRejectedOut struct {
	Message string `json:"message"`
}

// handleSignal resolves the target display name and forwards the frame. An
// unknown target drops the frame silently; the caller cannot distinguish
// offline from delivered, and recovers by retrying the call.
func (h *Hub) handleSignal(c *Client, event string, data json.RawMessage) {
	var payload SignalPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("Invalid %s payload from %s: %v", event, c.id, err)
		return
	}
	if payload.Target == "" {
		log.Printf("Dropping %s without target from %s", event, c.id)
		return
	}

	targetUser, found := h.registry.LookupByName(payload.Target)
	if !found {
		return
	}
	target, ok := h.clients[targetUser.ID]
	if !ok {
		return
	}

	switch event {
	case EventVoiceOffer:
		caller, ok := h.registry.LookupByID(c.id)
		if !ok {
			log.Printf("Dropping voice-offer from unregistered connection %s", c.id)
			return
		}
		h.sendEvent(target, EventVoiceOffer, voiceOfferOut{From: caller.Name, Offer: payload.Offer})
	case EventVoiceAnswer:
		h.sendEvent(target, EventVoiceAnswer, voiceAnswerOut{Answer: payload.Answer})
	case EventIceCandidate:
		h.sendEvent(target, EventIceCandidate, iceCandidateOut{Candidate: payload.Candidate})
	case EventVoiceReject:
		h.sendEvent(target, EventVoiceRejected, voiceRejectedOut{Message: "The call was rejected."})
	}
}
