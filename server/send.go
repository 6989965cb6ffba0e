package server

import (
	"net/http"
	"strings"

	"waitlist-intake/pkg/waitlist"
)

type sendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
	From    string `json:"from"`
}

// handleSendEmail sends a caller-composed message. Internal router only.
func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if status, msg, ok := decodeBody(w, r, &req); !ok {
		s.writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Subject) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing required fields: to and subject are required"})
		return
	}

	err := s.emailer.SendRaw(r.Context(), waitlist.Message{
		To:       req.To,
		From:     req.From,
		Subject:  req.Subject,
		HTMLBody: req.HTML,
		TextBody: req.Text,
	})
	if err != nil {
		if !waitlist.IsValidation(err) {
			s.logger.Error("Failed to send email", "error", err)
		}
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{Success: true})
}
