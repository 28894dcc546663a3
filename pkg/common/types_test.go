package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"
)

func TestNewRequestParsesJSONBody(t *testing.T) {
	header := http.Header{"Content-Type": []string{"application/json; charset=utf-8"}}
	req := NewRequest(context.Background(), http.MethodPost, "/users", "10.0.0.1:80", header, []byte(`{"name":"ali"}`))

	expected := map[string]any{"name": "ali"}
	if !reflect.DeepEqual(req.Data(), expected) {
		t.Errorf("Expected data %v, got %v", expected, req.Data())
	}
	if req.Method() != http.MethodPost || req.Path() != "/users" || req.RemoteAddr() != "10.0.0.1:80" {
		t.Errorf("Unexpected request fields: %s %s %s", req.Method(), req.Path(), req.RemoteAddr())
	}
}

func TestNewRequestIgnoresNonJSONBody(t *testing.T) {
	header := http.Header{"Content-Type": []string{"text/plain"}}
	req := NewRequest(context.Background(), http.MethodPost, "/", "", header, []byte(`{"name":"ali"}`))
	if req.Data() != nil {
		t.Errorf("Expected nil data for text/plain body, got %v", req.Data())
	}

	header = http.Header{"Content-Type": []string{"application/json"}}
	req = NewRequest(context.Background(), http.MethodPost, "/", "", header, []byte(`{not json`))
	if req.Data() != nil {
		t.Errorf("Expected nil data for malformed JSON, got %v", req.Data())
	}
}

func TestRequestIsImmutable(t *testing.T) {
	header := http.Header{"X-Test": []string{"one"}}
	body := []byte("payload")
	req := NewRequest(nil, http.MethodGet, "/", "", header, body)

	if req.Context() == nil {
		t.Fatal("Expected a non-nil context")
	}

	// Changing the caller's header must not leak into the request
	header.Set("X-Test", "two")
	if got := req.HeaderValue("X-Test"); got != "one" {
		t.Errorf("Expected header %q, got %q", "one", got)
	}

	// Changing a returned copy must not leak either
	req.Header().Set("X-Test", "three")
	req.Body()[0] = 'P'
	if got := req.HeaderValue("X-Test"); got != "one" {
		t.Errorf("Expected header %q, got %q", "one", got)
	}
	if got := string(req.Body()); got != "payload" {
		t.Errorf("Expected body %q, got %q", "payload", got)
	}

	type key struct{}
	derived := req.WithValue(key{}, 1)
	if derived == req {
		t.Error("Expected WithValue to return a new request")
	}
	if req.Context().Value(key{}) != nil {
		t.Error("Expected original request context to be unchanged")
	}
	if derived.Context().Value(key{}) != 1 {
		t.Error("Expected derived request to carry the value")
	}
}

func TestRequestDecode(t *testing.T) {
	req := NewRequest(context.Background(), http.MethodPost, "/", "", nil, []byte(`{"id":7}`))
	var payload struct {
		ID int `json:"id"`
	}
	if err := req.Decode(&payload); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if payload.ID != 7 {
		t.Errorf("Expected id 7, got %d", payload.ID)
	}

	req = NewRequest(context.Background(), http.MethodPost, "/", "", nil, []byte(`nope`))
	err := req.Decode(&payload)
	appErr, ok := AsAppError(err)
	if !ok {
		t.Fatalf("Expected AppError, got %v", err)
	}
	if appErr.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, appErr.StatusCode)
	}
}

func TestResponseMerge(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		expected map[string]any
	}{
		{"map", map[string]any{"ok": true}, map[string]any{"ok": true, "served_by": "mw1"}},
		{"nil", nil, map[string]any{"served_by": "mw1"}},
		{"string map", map[string]string{"ok": "yes"}, map[string]any{"ok": "yes", "served_by": "mw1"}},
		{"scalar", "hello", map[string]any{"data": "hello", "served_by": "mw1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewResponse(http.StatusOK, tt.data)
			resp.Merge(map[string]any{"served_by": "mw1"})
			if !reflect.DeepEqual(resp.Data, tt.expected) {
				t.Errorf("Expected data %v, got %v", tt.expected, resp.Data)
			}
		})
	}
}

func TestResponseMergeLeavesPayloadUntouched(t *testing.T) {
	shared := map[string]any{"ok": true}
	resp := NewResponse(http.StatusOK, shared)
	resp.Merge(map[string]any{"served_by": "mw1"})

	if len(shared) != 1 {
		t.Errorf("Expected the handler's map to be unchanged, got %v", shared)
	}
	if data := resp.Data.(map[string]any); data["served_by"] != "mw1" || data["ok"] != true {
		t.Errorf("Expected merged data, got %v", data)
	}

	// A nil map of the right type still merges
	resp = NewResponse(http.StatusOK, map[string]any(nil))
	resp.Merge(map[string]any{"served_by": "mw1"})
	if !reflect.DeepEqual(resp.Data, map[string]any{"served_by": "mw1"}) {
		t.Errorf("Expected merged data, got %v", resp.Data)
	}
}

func TestRequestDataIsCopy(t *testing.T) {
	header := http.Header{"Content-Type": []string{"application/json"}}
	req := NewRequest(context.Background(), http.MethodPost, "/", "", header, []byte(`{"user":{"tags":["a"]}}`))

	data := req.Data().(map[string]any)
	data["extra"] = true
	user := data["user"].(map[string]any)
	user["name"] = "bob"
	user["tags"].([]any)[0] = "b"

	expected := map[string]any{"user": map[string]any{"tags": []any{"a"}}}
	if !reflect.DeepEqual(req.Data(), expected) {
		t.Errorf("Expected data %v, got %v", expected, req.Data())
	}
}

func TestResponseSetHeader(t *testing.T) {
	resp := &Response{StatusCode: http.StatusOK}
	resp.SetHeader("X-Served-By", "mw1")
	if got := resp.Header.Get("X-Served-By"); got != "mw1" {
		t.Errorf("Expected header %q, got %q", "mw1", got)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NewAppError(http.StatusConflict, "conflict")
	if appErr.Error() != "409: conflict" {
		t.Errorf("Expected error string %q, got %q", "409: conflict", appErr.Error())
	}

	wrapped := fmt.Errorf("creating user: %w", appErr)
	got, ok := AsAppError(wrapped)
	if !ok || got != appErr {
		t.Errorf("Expected wrapped AppError to be recognised, got %v %v", got, ok)
	}

	if _, ok := AsAppError(errors.New("plain")); ok {
		t.Error("Expected plain error not to be an AppError")
	}
	if _, ok := AsAppError(nil); ok {
		t.Error("Expected nil not to be an AppError")
	}
}

func TestCallHandlerRecoversPanic(t *testing.T) {
	_, err := CallHandler(func(req *Request) (*Response, error) {
		panic("kaboom")
	}, newTestRequest())

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected *PanicError, got %v", err)
	}
	if panicErr.Value != "kaboom" {
		t.Errorf("Expected panic value %q, got %v", "kaboom", panicErr.Value)
	}
	if len(panicErr.Stack) == 0 {
		t.Error("Expected a stack trace")
	}
}
