package jsonrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mbrtn/switchyard/pkg/a2a/types"
	"github.com/mbrtn/switchyard/pkg/errors"
)

type stubHandler struct {
	task *types.Task
	err  error
}

func (s *stubHandler) SendMessage(ctx context.Context, params *types.SendParams) (*types.Task, error) {
	return s.task, s.err
}

func (s *stubHandler) GetTask(ctx context.Context, params *types.GetTaskParams) (*types.Task, error) {
	return s.task, s.err
}

func post(t *testing.T, srv *httptest.Server, body string) (int, rpcResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

func TestServeSendMessage(t *testing.T) {
	handler := &stubHandler{task: &types.Task{
		ID:     "task-1",
		Status: types.TaskStatus{State: types.TaskStateCompleted},
	}}
	srv := httptest.NewServer(New(handler))
	defer srv.Close()

	_, decoded := post(t, srv, `{"jsonrpc":"2.0","id":"1","method":"message/send","params":{"message":{"role":"user","parts":[{"type":"text","text":"hi"}]}}}`)
	if decoded.Error != nil {
		t.Fatalf("error = %+v", decoded.Error)
	}
	raw, _ := json.Marshal(decoded.Result)
	var task types.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.ID != "task-1" || task.State() != types.TaskStateCompleted {
		t.Fatalf("task = %+v", task)
	}
}

func TestServeInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(New(&stubHandler{}))
	defer srv.Close()

	_, decoded := post(t, srv, `{not json`)
	if decoded.Error == nil || decoded.Error.Code != -32700 {
		t.Fatalf("error = %+v, want -32700", decoded.Error)
	}
}

func TestServeInvalidEnvelope(t *testing.T) {
	srv := httptest.NewServer(New(&stubHandler{}))
	defer srv.Close()

	_, decoded := post(t, srv, `{"jsonrpc":"1.0","id":"1","method":"message/send"}`)
	if decoded.Error == nil || decoded.Error.Code != -32600 {
		t.Fatalf("error = %+v, want -32600", decoded.Error)
	}
}

func TestServeMethodNotFound(t *testing.T) {
	srv := httptest.NewServer(New(&stubHandler{}))
	defer srv.Close()

	_, decoded := post(t, srv, `{"jsonrpc":"2.0","id":"1","method":"tasks/cancel","params":{}}`)
	if decoded.Error == nil || decoded.Error.Code != -32601 {
		t.Fatalf("error = %+v, want -32601", decoded.Error)
	}
}

func TestServeMissingParams(t *testing.T) {
	srv := httptest.NewServer(New(&stubHandler{}))
	defer srv.Close()

	_, decoded := post(t, srv, `{"jsonrpc":"2.0","id":"1","method":"message/send"}`)
	if decoded.Error == nil || decoded.Error.Code != -32602 {
		t.Fatalf("error = %+v, want -32602", decoded.Error)
	}
}

func TestServeHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", errors.Newf(errors.CodeNotFound, "task missing"), -32004},
		{"invalid input", errors.Newf(errors.CodeInvalidInput, "no text"), -32602},
		{"internal", errors.Newf(errors.CodeInternal, "boom"), -32000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(New(&stubHandler{err: tc.err}))
			defer srv.Close()

			_, decoded := post(t, srv, `{"jsonrpc":"2.0","id":"1","method":"tasks/get","params":{"id":"x"}}`)
			if decoded.Error == nil || decoded.Error.Code != tc.want {
				t.Fatalf("error = %+v, want code %d", decoded.Error, tc.want)
			}
		})
	}
}

func TestServeRejectsGet(t *testing.T) {
	srv := httptest.NewServer(New(&stubHandler{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
