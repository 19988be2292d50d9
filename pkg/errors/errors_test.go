package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   ErrorType
		fatal      bool
		structural bool
	}{
		{"nil", nil, ErrorTypeUnknown, false, false},
		{"plain", stderrors.New("boom"), ErrorTypeUnknown, false, false},
		{"session", ErrSessionInvalid, ErrorTypeSession, true, false},
		{"wrapped session", fmt.Errorf("open profile bob: %w", ErrSessionInvalid), ErrorTypeSession, true, false},
		{"structural", New(ErrorTypeStructural, "dialog missing"), ErrorTypeStructural, false, true},
		{
			"structural around timeout",
			Wrap(ErrorTypeStructural, "open following list", New(ErrorTypeTimeout, "dialog")),
			ErrorTypeStructural, false, true,
		},
		{
			"candidate around session",
			Wrap(ErrorTypeCandidate, "bob", ErrSessionInvalid),
			ErrorTypeCandidate, true, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, TypeOf(tt.err))
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
			assert.Equal(t, tt.structural, IsStructural(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(ErrorTypeStore, "ping", stderrors.New("connection refused"))
	assert.Equal(t, "store error: ping: connection refused", err.Error())
	assert.Equal(t, "config error: bad", New(ErrorTypeConfig, "bad").Error())
	assert.True(t, stderrors.Is(err, err.Err))
}
