// ABOUTME: HTTP handlers for the webhook and administrative operations
// ABOUTME: JSON request/response bodies with the 400/401/404/500 error contract

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/courierbot/courier/internal/activity"
	"github.com/courierbot/courier/internal/dispatch"
	"github.com/courierbot/courier/internal/msgfmt"
	"github.com/courierbot/courier/internal/refstore"
)

// defaultLegacyPath is used when export/migrate requests omit a path.
const defaultLegacyPath = "conversation_references.json"

// SendRequest is the JSON request body for the send endpoints.
type SendRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Markdown       bool   `json:"markdown,omitempty"`
}

// FileRequest is the JSON request body for export and migrate.
type FileRequest struct {
	Path string `json:"path,omitempty"`
}

// AccountResponse mirrors a stored channel account.
type AccountResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReferenceResponse is one stored conversation reference.
type ReferenceResponse struct {
	ActivityID     string          `json:"activity_id"`
	Bot            AccountResponse `json:"bot"`
	ChannelID      string          `json:"channel_id"`
	ConversationID string          `json:"conversation_id"`
	IsGroup        *bool           `json:"is_group"`
	ServiceURL     string          `json:"service_url"`
	User           AccountResponse `json:"user"`
}

// handleMessages handles POST /api/messages, the inbound webhook. The turn
// observer records the conversation reference before anything else runs.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var act activity.Activity
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid activity payload")
		return
	}

	if err := s.bot.OnTurn(r.Context(), &act); err != nil {
		s.logger.Error("turn processing failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleNotify handles GET and POST /api/notify. GET broadcasts the
// configured default message; POST broadcasts the supplied body.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var body string
	switch r.Method {
	case http.MethodGet:
		body = s.cfg.Broadcast.DefaultMessage
		if body == "" {
			body = "proactive hello"
		}
	case http.MethodPost:
		req, err := s.parseSendRequest(r)
		if err != nil {
			s.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		body = req.Message
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	result, err := s.dispatcher.Broadcast(r.Context(), body)
	if err != nil {
		s.logger.Error("broadcast failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendJSON(w, http.StatusOK, result)
}

// handleSendMessage handles POST /api/send-message with {message, user_id}.
// The id names the conversation the user was last seen in.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	s.handleSingleSend(w, r, func(req *SendRequest) (string, string) {
		return req.UserID, "user_id"
	})
}

// handleSendByConvID handles POST /api/send-by-convid with
// {message, conversation_id}.
func (s *Server) handleSendByConvID(w http.ResponseWriter, r *http.Request) {
	s.handleSingleSend(w, r, func(req *SendRequest) (string, string) {
		return req.ConversationID, "conversation_id"
	})
}

func (s *Server) handleSingleSend(w http.ResponseWriter, r *http.Request, target func(*SendRequest) (id, field string)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := s.parseSendRequest(r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, field := target(req)
	if id == "" {
		s.sendJSONError(w, http.StatusBadRequest, field+" is required")
		return
	}

	err = s.dispatcher.DeliverTo(r.Context(), id, req.Message)
	switch {
	case errors.Is(err, refstore.ErrNotFound):
		s.sendJSONError(w, http.StatusNotFound, "no conversation reference found for "+id)
	case errors.Is(err, dispatch.ErrEmptyMessage), errors.Is(err, dispatch.ErrUndeliverable):
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error("proactive send failed", "conversation_id", id, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	default:
		s.sendJSON(w, http.StatusOK, map[string]string{"status": "sent", "conversation_id": id})
	}
}

// handleConversations handles GET (list) and DELETE (clear all) on
// /api/conversations.
func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		refs, err := s.store.ListAll(r.Context())
		if err != nil {
			s.logger.Error("failed to list conversations", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		out := make(map[string]ReferenceResponse, len(refs))
		for id, ref := range refs {
			out[id] = toReferenceResponse(ref)
		}
		s.sendJSON(w, http.StatusOK, out)

	case http.MethodDelete:
		if err := s.store.Clear(r.Context()); err != nil {
			s.logger.Error("failed to clear conversations", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleConversationByID handles DELETE /api/conversations/{id}.
func (s *Server) handleConversationByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	if id == "" || strings.Contains(id, "/") {
		s.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		s.logger.Error("failed to delete conversation", "conversation_id", id, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport handles POST /api/export.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.handleFileTransfer(w, r, refstore.ExportToFile)
}

// handleMigrate handles POST /api/migrate.
func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	s.handleFileTransfer(w, r, refstore.MigrateFromFile)
}

func (s *Server) handleFileTransfer(w http.ResponseWriter, r *http.Request, transfer func(context.Context, refstore.Store, string) (int, error)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := defaultLegacyPath
	var req FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Path != "" {
		path = req.Path
	}

	count, err := transfer(r.Context(), s.store, path)
	if err != nil {
		if errors.Is(err, refstore.ErrDecode) {
			s.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("file transfer failed", "path", path, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{"count": count, "path": path})
}

// handleDiagnostics handles GET /api/diagnostics. Diagnostics are best
// effort: an engine failure becomes an error payload, not a 5xx.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status, err := s.store.Diagnostics(r.Context())
	if err != nil {
		s.logger.Error("diagnostics query failed", "error", err)
		s.sendJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}
	s.sendJSON(w, http.StatusOK, status)
}

// parseSendRequest decodes and validates a send payload, rendering markdown
// bodies to block-marked HTML when requested.
func (s *Server) parseSendRequest(r *http.Request) (*SendRequest, error) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	if req.Message == "" {
		return nil, errors.New("message is required")
	}

	if req.Markdown {
		rendered, err := msgfmt.RenderMarkdown(req.Message)
		if err != nil {
			return nil, err
		}
		req.Message = rendered
	}
	return &req, nil
}

func toReferenceResponse(ref *refstore.ConversationReference) ReferenceResponse {
	return ReferenceResponse{
		ActivityID:     ref.ActivityID,
		Bot:            AccountResponse{ID: ref.Bot.ID, Name: ref.Bot.Name},
		ChannelID:      ref.ChannelID,
		ConversationID: ref.Conversation.ID,
		IsGroup:        ref.Conversation.IsGroup,
		ServiceURL:     ref.ServiceURL,
		User:           AccountResponse{ID: ref.User.ID, Name: ref.User.Name},
	}
}

// sendJSON writes a JSON response body.
func (s *Server) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]string{"error": message})
}
