package server

import (
	"context"
	"net/http"

	"waitlist-intake/pkg/waitlist"
)

func (s *Server) handleSendWelcome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

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

	member, err := s.isMember(ctx, email)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !member {
		s.logger.Warn("Welcome email refused for non-member", "email", waitlist.RedactEmail(email))
		s.writeError(w, waitlist.ErrNotMember)
		return
	}

	if err := s.emailer.SendWelcome(ctx, email); err != nil {
		s.logger.Error("Failed to send welcome email", "email", waitlist.RedactEmail(email), "error", err)
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// isMember reports whether email is recorded in the waitlist. A failed
// lookup counts as absent. An unconfigured store is returned as its
// configuration error so the caller can answer 500.
func (s *Server) isMember(ctx context.Context, email string) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	ok, err := s.store.Contains(ctx, email)
	if err != nil {
		if waitlist.IsConfig(err) {
			s.logger.Error("Waitlist store not configured", "error", err)
			return false, err
		}
		s.logger.Error("Waitlist lookup failed", "email", waitlist.RedactEmail(email), "error", err)
		return false, nil
	}
	return ok, nil
}
