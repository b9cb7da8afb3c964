package ws

import (
	"context"
	"encoding/json"

	"github.com/Smeruxa/STalk-Messenger/internal/metrics"
)

// Call signaling relay: four message types forwarded verbatim between
// exactly two identities. Nothing is persisted and no lifecycle is
// enforced server-side; an offline peer means the payload is silently
// dropped and the caller gets no delivery confirmation.

type incomingCall struct {
	From     int64           `json:"from"`
	Username string          `json:"username"`
	Offer    json.RawMessage `json:"offer"`
}

type callAnswered struct {
	Answer json.RawMessage `json:"answer"`
}

type iceCandidateNotice struct {
	Candidate json.RawMessage `json:"candidate"`
}

func (rt *Router) handleCallUser(_ context.Context, c *Client, data json.RawMessage) error {
	var req callOfferPayload
	if err := json.Unmarshal(data, &req); err != nil || req.To <= 0 {
		return nil
	}
	if peer, ok := rt.registry.Resolve(req.To); ok {
		metrics.CallsRelayed.WithLabelValues("offer").Inc()
		rt.emit(peer, "incoming_call", incomingCall{
			From:     c.Identity.ID,
			Username: c.Identity.Username,
			Offer:    req.Offer,
		})
	}
	return nil
}

func (rt *Router) handleAnswerCall(_ context.Context, c *Client, data json.RawMessage) error {
	var req callAnswerPayload
	if err := json.Unmarshal(data, &req); err != nil || req.To <= 0 {
		return nil
	}
	if peer, ok := rt.registry.Resolve(req.To); ok {
		metrics.CallsRelayed.WithLabelValues("answer").Inc()
		rt.emit(peer, "call_answered", callAnswered{Answer: req.Answer})
	}
	return nil
}

func (rt *Router) handleIceCandidate(_ context.Context, c *Client, data json.RawMessage) error {
	var req iceCandidatePayload
	if err := json.Unmarshal(data, &req); err != nil || req.To <= 0 {
		return nil
	}
	if peer, ok := rt.registry.Resolve(req.To); ok {
		metrics.CallsRelayed.WithLabelValues("ice").Inc()
		rt.emit(peer, "ice_candidate", iceCandidateNotice{Candidate: req.Candidate})
	}
	return nil
}

func (rt *Router) handleEndCall(_ context.Context, c *Client, data json.RawMessage) error {
	var req callEndPayload
	if err := json.Unmarshal(data, &req); err != nil || req.To <= 0 {
		return nil
	}
	if peer, ok := rt.registry.Resolve(req.To); ok {
		metrics.CallsRelayed.WithLabelValues("end").Inc()
		rt.emit(peer, "call_ended", nil)
	}
	return nil
}
