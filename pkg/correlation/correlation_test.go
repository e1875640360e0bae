// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package correlation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestWithCorrelationID(t *testing.T) {
	tests := []struct {
		name          string
		ctx           context.Context
		correlationID string
		want          string
	}{
		{
			name:          "Add correlation ID to context",
			ctx:           context.Background(),
			correlationID: "test-correlation-id",
			want:          "test-correlation-id",
		},
		{
			name:          "Add correlation ID to nil context",
			ctx:           nil,
			correlationID: "test-correlation-id-2",
			want:          "test-correlation-id-2",
		},
		{
			name:          "Add empty correlation ID",
			ctx:           context.Background(),
			correlationID: "",
			want:          "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithCorrelationID(tt.ctx, tt.correlationID)
			if ctx == nil {
				t.Fatal("WithCorrelationID returned nil context")
			}
			got := GetCorrelationID(ctx)
			if got != tt.want {
				t.Errorf("GetCorrelationID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCorrelationIDMissing(t *testing.T) {
	if got := GetCorrelationID(context.Background()); got != "" {
		t.Errorf("GetCorrelationID() = %v, want empty", got)
	}
	if got := GetCorrelationID(nil); got != "" {
		t.Errorf("GetCorrelationID(nil) = %v, want empty", got)
	}
}

func TestNewID(t *testing.T) {
	id := NewID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("NewID() returned invalid UUID: %v", err)
	}
	if NewID() == id {
		t.Error("NewID() returned duplicate IDs")
	}
}

func TestGetOrGenerate(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "existing-id")
	if got := GetOrGenerate(ctx); got != "existing-id" {
		t.Errorf("GetOrGenerate() = %v, want existing-id", got)
	}

	generated := GetOrGenerate(context.Background())
	if _, err := uuid.Parse(generated); err != nil {
		t.Errorf("GetOrGenerate() generated invalid UUID: %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	t.Run("propagates caller ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(CorrelationIDHeader, "caller-id")
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if seen != "caller-id" {
			t.Errorf("handler saw %v, want caller-id", seen)
		}
		if got := rr.Header().Get(CorrelationIDHeader); got != "caller-id" {
			t.Errorf("response header = %v, want caller-id", got)
		}
	})

	t.Run("mints missing ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		echoed := rr.Header().Get(CorrelationIDHeader)
		if _, err := uuid.Parse(echoed); err != nil {
			t.Errorf("minted ID invalid: %v", err)
		}
		if seen != echoed {
			t.Errorf("handler saw %v, response echoed %v", seen, echoed)
		}
	})
}
