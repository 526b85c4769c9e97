package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jsperson/chathero/pkg/llm"
	"github.com/jsperson/chathero/pkg/pipeline"
)

// ChatMessage is a single entry of conversation history on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the incoming chat request.
type ChatRequest struct {
	Message  string        `json:"message"`
	History  []ChatMessage `json:"conversationHistory"`
	Datasets []string      `json:"datasets"`
	Model    string        `json:"model,omitempty"`
}

// ChatResponse is the terminal response for both endpoints.
type ChatResponse struct {
	RequestID string        `json:"requestId"`
	Response  string        `json:"response"`
	History   []ChatMessage `json:"conversationHistory"`
	Timestamp time.Time     `json:"timestamp"`
}

// ErrorResponse carries a user-safe error. Internal detail is logged, never
// returned.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Chat handles the request/response chat endpoint.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	records, docs, err := s.store.Load(r.Context(), req.Datasets)
	if err != nil {
		s.log.Error("chat: dataset load failed", "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "One or more selected datasets are unavailable. Check the dataset configuration.",
			Code:  "dataset_unavailable",
		})
		return
	}

	result, err := s.pipeline.Run(r.Context(), req.Message, records, docs, pipeline.RunOptions{
		History:       toMessages(req.History),
		ModelOverride: req.Model,
	})
	if err != nil {
		s.log.Error("chat: pipeline failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Something went wrong answering your question. Please try again.",
			Code:  "pipeline_failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		RequestID: uuid.NewString(),
		Response:  result.Answer,
		History:   fromMessages(result.History),
		Timestamp: time.Now().UTC(),
	})
}

// ChatStream handles the SSE streaming variant: ordered progress events
// followed by a terminal done or error event.
func (s *Server) ChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sendEvent := func(eventType string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			s.log.Error("chat stream: failed to marshal event", "eventType", eventType, "error", err)
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
		flusher.Flush()
	}

	records, docs, err := s.store.Load(r.Context(), req.Datasets)
	if err != nil {
		s.log.Error("chat stream: dataset load failed", "error", err)
		sendEvent("error", ErrorResponse{
			Error: "One or more selected datasets are unavailable. Check the dataset configuration.",
			Code:  "dataset_unavailable",
		})
		return
	}

	result, err := s.pipeline.Run(r.Context(), req.Message, records, docs, pipeline.RunOptions{
		History:       toMessages(req.History),
		ModelOverride: req.Model,
		OnProgress: func(p pipeline.Progress) {
			sendEvent("progress", p)
		},
	})
	if err != nil {
		s.log.Error("chat stream: pipeline failed", "error", err)
		sendEvent("error", ErrorResponse{
			Error: "Something went wrong answering your question. Please try again.",
			Code:  "pipeline_failed",
		})
		return
	}

	sendEvent("done", ChatResponse{
		RequestID: uuid.NewString(),
		Response:  result.Answer,
		History:   fromMessages(result.History),
		Timestamp: time.Now().UTC(),
	})
}

// InvalidateRequest names the dataset to evict; empty means all.
type InvalidateRequest struct {
	Dataset string `json:"dataset"`
}

// Invalidate evicts cached dataset records. The admin layer calls this after
// editing a dataset.
func (s *Server) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "bad_request"})
		return
	}
	s.store.Invalidate(req.Dataset)
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (ChatRequest, bool) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "bad_request"})
		return req, false
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Message is required", Code: "bad_request"})
		return req, false
	}
	if len(req.Datasets) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "At least one dataset must be selected", Code: "bad_request"})
		return req, false
	}
	return req, true
}

func toMessages(history []ChatMessage) []llm.Message {
	out := make([]llm.Message, len(history))
	for i, m := range history {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

func fromMessages(history []llm.Message) []ChatMessage {
	out := make([]ChatMessage, len(history))
	for i, m := range history {
		out[i] = ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
