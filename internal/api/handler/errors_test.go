package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/timmy/panelgate/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidReason, http.StatusBadRequest},
		{fmt.Errorf("lookup: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrAlreadyFinalized, http.StatusConflict},
		{domain.ErrQuotaExhausted, http.StatusConflict},
		{domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
