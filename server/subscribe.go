package server

import (
	"net/http"
	"strconv"

	"waitlist-intake/pkg/waitlist"
	"waitlist-intake/ratelimit"
)

type emailRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Rate limiting by client identity, before any parsing
	identity := ratelimit.ClientIdentity(r)
	if s.limiter.CheckAndConsume(ctx, identity, s.now()) {
		s.logger.Warn("Rate limit exceeded", "identity", identity)
		w.Header().Set("Retry-After", strconv.Itoa(int(s.limiter.Window().Seconds())))
		s.writeError(w, waitlist.ErrRateLimited)
		return
	}

	var req emailRequest
	if status, msg, ok := decodeBody(w, r, &req); !ok {
		s.writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	email, err := waitlist.ValidateEmail(req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	outcome := s.provider.Subscribe(ctx, email)
	s.logger.Info("Subscription forwarded",
		"provider", s.provider.Name(),
		"email", waitlist.RedactEmail(email),
		"outcome", outcome.Kind.String())

	switch outcome.Kind {
	case waitlist.Accepted, waitlist.AlreadySubscribed:
		s.record(r, email)
		s.writeJSON(w, http.StatusOK, successResponse{Success: true})
	case waitlist.Rejected:
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: outcome.Reason})
	default:
		if outcome.Err != nil {
			s.logger.Error("Subscription failed", "provider", s.provider.Name(), "error", outcome.Err)
		}
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: outcome.Reason})
	}
}

// record adds email to the waitlist store. Failures are logged only; the
// subscription itself already succeeded.
func (s *Server) record(r *http.Request, email string) {
	if s.store == nil {
		return
	}
	entry, err := s.store.Add(r.Context(), email)
	if err != nil {
		s.logger.Warn("Failed to record waitlist entry", "email", waitlist.RedactEmail(email), "error", err)
		return
	}
	s.logger.Info("Waitlist entry recorded", "id", entry.ID, "email", waitlist.RedactEmail(email))
}
