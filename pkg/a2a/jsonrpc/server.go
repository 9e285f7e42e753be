package jsonrpc

import (
	"encoding/json"
	"net/http"

	"github.com/mbrtn/switchyard/pkg/a2a/server"
	"github.com/mbrtn/switchyard/pkg/a2a/types"
	"github.com/mbrtn/switchyard/pkg/errors"
)

// Server exposes the JSON-RPC binding for task handlers.
type Server struct {
	Handler server.Handler
}

// New creates a new JSON-RPC server wrapper.
func New(handler server.Handler) *Server {
	return &Server{Handler: handler}
}

// ServeHTTP handles JSON-RPC 2.0 requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.Handler == nil {
		writeError(w, nil, rpcError{Code: -32001, Message: "handler not configured"})
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, rpcError{Code: -32700, Message: "invalid json"})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeError(w, req.ID, rpcError{Code: -32600, Message: "invalid request"})
		return
	}
	switch req.Method {
	case "message/send":
		s.handleSendMessage(w, r, req)
	case "tasks/get":
		s.handleGetTask(w, r, req)
	default:
		writeError(w, req.ID, rpcError{Code: -32601, Message: "method not found"})
	}
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, req rpcRequest) {
	payload := &types.SendParams{}
	if err := decodeParams(req.Params, payload); err != nil {
		writeError(w, req.ID, rpcError{Code: -32602, Message: err.Error()})
		return
	}
	task, err := s.Handler.SendMessage(r.Context(), payload)
	if err != nil {
		writeRPCError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request, req rpcRequest) {
	payload := &types.GetTaskParams{}
	if err := decodeParams(req.Params, payload); err != nil {
		writeError(w, req.ID, rpcError{Code: -32602, Message: err.Error()})
		return
	}
	task, err := s.Handler.GetTask(r.Context(), payload)
	if err != nil {
		writeRPCError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, task)
}

func decodeParams(params json.RawMessage, target any) error {
	if len(params) == 0 {
		return errors.New(errors.CodeInvalidInput, "missing params", nil)
	}
	return json.Unmarshal(params, target)
}

func writeResult(w http.ResponseWriter, id any, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		writeRPCError(w, id, errors.New(errors.CodeInternal, err.Error(), nil))
		return
	}
	writeJSON(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  json.RawMessage(raw),
	})
}

func writeRPCError(w http.ResponseWriter, id any, err error) {
	code := -32000
	switch errors.CodeOf(err) {
	case errors.CodeInvalidInput:
		code = -32602
	case errors.CodeNotFound:
		code = -32004
	}
	writeError(w, id, rpcError{Code: code, Message: err.Error()})
}

func writeError(w http.ResponseWriter, id any, err rpcError) {
	writeJSON(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &err,
	})
}

func writeJSON(w http.ResponseWriter, payload rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
