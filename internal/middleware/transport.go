package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/AnandVishesh1301/temboXpoke/internal/jsonrpc"
)

// maxBodyBytes bounds a single JSON-RPC message.
const maxBodyBytes = 1 << 20

// RequestProcessor processes JSON-RPC requests.
// Implemented by the MCP handler.
type RequestProcessor interface {
	ProcessRequest(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error)
}

// session represents an SSE connection session.
type session struct {
	id       string
	messages chan []byte
}

// transport manages SSE/Inline transport for MCP.
type transport struct {
	processor RequestProcessor
	logger    *slog.Logger
	sessions  map[string]*session
	mu        sync.RWMutex
}

// Transport creates an http.Handler that manages SSE and Inline JSON-RPC transport.
// It delegates request processing to the given RequestProcessor.
func Transport(processor RequestProcessor, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &transport{
		processor: processor,
		logger:    logger,
		sessions:  make(map[string]*session),
	}
}

func (t *transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		t.handleSSE(w, r)
	case http.MethodPost:
		t.handleMessage(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (t *transport) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	s := &session{
		id:       uuid.NewString(),
		messages: make(chan []byte, 100),
	}

	t.mu.Lock()
	t.sessions[s.id] = s
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.sessions, s.id)
		t.mu.Unlock()
	}()

	// Send endpoint event (MCP SSE protocol)
	fmt.Fprintf(w, "event: endpoint\ndata: %s?sessionId=%s\n\n", r.URL.Path, s.id)
	flusher.Flush()
	t.logger.Info("SSE connection established", "session", s.id, "request_id", GetRequestID(r.Context()))

	// Keep connection open and send messages
	for {
		select {
		case msg := <-s.messages:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			t.logger.Info("SSE connection closed", "session", s.id)
			return
		}
	}
}

// readRequest decodes one JSON-RPC request. A non-nil error is the JSON-RPC
// error to send back.
func (t *transport) readRequest(w http.ResponseWriter, r *http.Request) (*jsonrpc.Request, *jsonrpc.Error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &jsonrpc.Error{Code: jsonrpc.InvalidRequest, Message: "Failed to read body"}
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &jsonrpc.Error{Code: jsonrpc.ParseError, Message: "Parse error"}
	}
	if req.JSONRPC != jsonrpc.Version || req.Method == "" {
		return &req, &jsonrpc.Error{Code: jsonrpc.InvalidRequest, Message: "Invalid Request"}
	}
	return &req, nil
}

func (t *transport) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		t.handleInlineMessage(w, r)
		return
	}

	t.mu.RLock()
	s, ok := t.sessions[sessionID]
	t.mu.RUnlock()

	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	req, rpcErr := t.readRequest(w, r)
	if rpcErr != nil {
		t.send(s, jsonrpc.NewError(rpcID(req), rpcErr))
		w.WriteHeader(http.StatusAccepted)
		return
	}

	t.logger.Info("received request", "method", req.Method, "id", string(req.ID), "session", sessionID, "request_id", GetRequestID(r.Context()))

	result, rpcErr := t.processor.ProcessRequest(r.Context(), req)
	if !req.IsNotification() {
		if rpcErr != nil {
			t.send(s, jsonrpc.NewError(req.ID, rpcErr))
		} else {
			t.send(s, jsonrpc.NewResult(req.ID, result))
		}
	}

	w.WriteHeader(http.StatusAccepted)
}

func (t *transport) handleInlineMessage(w http.ResponseWriter, r *http.Request) {
	req, rpcErr := t.readRequest(w, r)
	if rpcErr != nil {
		t.writeJSON(w, jsonrpc.NewError(rpcID(req), rpcErr))
		return
	}

	t.logger.Info("received inline request", "method", req.Method, "id", string(req.ID), "request_id", GetRequestID(r.Context()))

	result, rpcErr := t.processor.ProcessRequest(r.Context(), req)
	if req.IsNotification() {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if rpcErr != nil {
		t.writeJSON(w, jsonrpc.NewError(req.ID, rpcErr))
		return
	}
	t.writeJSON(w, jsonrpc.NewResult(req.ID, result))
}

func (t *transport) writeJSON(w http.ResponseWriter, resp jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.logger.Warn("failed to write response", "err", err)
	}
}

func (t *transport) send(s *session, resp jsonrpc.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		t.logger.Warn("failed to marshal response", "err", err, "session", s.id)
		return
	}
	select {
	case s.messages <- data:
	default:
		t.logger.Warn("session message buffer full", "session", s.id)
	}
}

func rpcID(req *jsonrpc.Request) json.RawMessage {
	if req == nil {
		return nil
	}
	return req.ID
}
