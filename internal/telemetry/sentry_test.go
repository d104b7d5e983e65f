package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"fintrack/internal/core"
)

func TestReportable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", fmt.Errorf("add: %w", core.ErrEmptyDescription), false},
		{"not found", core.ErrNotFound, false},
		{"no plan", core.ErrNoPlan, false},
		{"canceled", context.Canceled, false},
		{"inconsistent", &core.InconsistentStateError{Category: "Food"}, true},
		{"storage", errors.New("disk full"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reportable(tt.err))
		})
	}
}

func TestDisabledWithoutDSN(t *testing.T) {
	assert.NoError(t, Init(Options{}))
	assert.False(t, Enabled())
	// No client: these must not panic.
	Report(context.Background(), "test", errors.New("boom"))
	Breadcrumb("budget", "reset")
	Flush(0)
}
