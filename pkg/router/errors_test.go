package router

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"github.com/Suhaibinator/SDispatch/pkg/common"
)

// TestTranslateError tests the shape of translated error payloads
func TestTranslateError(t *testing.T) {
	tests := []struct {
		name       string
		err        *common.AppError
		wantStatus int
		wantData   any
	}{
		{
			name:       "scalar detail",
			err:        common.NewAppError(http.StatusBadRequest, "bad input"),
			wantStatus: http.StatusBadRequest,
			wantData:   map[string]any{"detail": "bad input"},
		},
		{
			name:       "map detail is not wrapped",
			err:        common.NewAppError(http.StatusBadRequest, map[string]any{"field": "x"}),
			wantStatus: http.StatusBadRequest,
			wantData:   map[string]any{"field": "x"},
		},
		{
			name:       "string map detail is not wrapped",
			err:        common.NewAppError(http.StatusUnprocessableEntity, map[string]string{"name": "required"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantData:   map[string]string{"name": "required"},
		},
		{
			name:       "list detail is wrapped",
			err:        common.NewAppError(http.StatusBadRequest, []string{"a", "b"}),
			wantStatus: http.StatusBadRequest,
			wantData:   map[string]any{"detail": []string{"a", "b"}},
		},
		{
			name:       "status out of range",
			err:        common.NewAppError(42, "odd"),
			wantStatus: http.StatusInternalServerError,
			wantData:   map[string]any{"detail": "odd"},
		},
		{
			name:       "nil error",
			err:        nil,
			wantStatus: http.StatusInternalServerError,
			wantData:   map[string]any{"detail": "Internal Server Error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := TranslateError(tt.err)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if !reflect.DeepEqual(resp.Data, tt.wantData) {
				t.Errorf("Expected data %v, got %v", tt.wantData, resp.Data)
			}
		})
	}
}

// TestTranslateErrorCopies tests that the response never aliases the error value
func TestTranslateErrorCopies(t *testing.T) {
	detail := map[string]any{"field": "x"}
	appErr := common.NewAppError(http.StatusBadRequest, detail).WithHeader("X-Reason", "field")

	resp := TranslateError(appErr)
	resp.Merge(map[string]any{"extra": true})
	resp.Header.Set("X-Reason", "changed")

	if _, ok := detail["extra"]; ok {
		t.Errorf("Expected error detail to be left untouched, got %v", detail)
	}
	if got := appErr.Header.Get("X-Reason"); got != "field" {
		t.Errorf("Expected error header %q, got %q", "field", got)
	}
}

func TestBodyError(t *testing.T) {
	tooLarge := fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10})
	if got := bodyError(tooLarge).StatusCode; got != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status %d, got %d", http.StatusRequestEntityTooLarge, got)
	}
	if got := bodyError(errors.New("reset")).StatusCode; got != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, got)
	}
}

// TestRouteTable tests registration and exact lookup
func TestRouteTable(t *testing.T) {
	table := NewRouteTable()
	h := okHandler(nil)

	if err := table.Register("/b", h); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := table.Register("/a", h); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := table.Register("/a", h); !errors.Is(err, ErrInvalidRoute) {
		t.Errorf("Expected ErrInvalidRoute for duplicate path, got %v", err)
	}
	if err := table.Register("/c", nil); !errors.Is(err, ErrInvalidRoute) {
		t.Errorf("Expected ErrInvalidRoute for nil handler, got %v", err)
	}

	if _, ok := table.Resolve("/a"); !ok {
		t.Errorf("Expected /a to resolve")
	}
	if _, ok := table.Resolve("/a/"); ok {
		t.Errorf("Expected /a/ not to resolve")
	}
	if table.Len() != 2 {
		t.Errorf("Expected 2 routes, got %d", table.Len())
	}
	if got := table.Paths(); !reflect.DeepEqual(got, []string{"/a", "/b"}) {
		t.Errorf("Expected sorted paths [/a /b], got %v", got)
	}
}
