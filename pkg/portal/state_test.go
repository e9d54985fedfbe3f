package portal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logbook-automation/pkg/config"
)

func TestHeuristicsFromConfig(t *testing.T) {
	destroyed := errors.New("Execution context was destroyed")

	h := HeuristicsFromConfig(&config.HeuristicConfig{NavigationMeansSubmitted: true, LingeringModalTentative: true})
	assert.True(t, h.NavigatedDuringSubmit(destroyed))
	assert.False(t, h.NavigatedDuringSubmit(errors.New("element is not clickable")))
	assert.True(t, h.LingeringModal())

	h = HeuristicsFromConfig(&config.HeuristicConfig{})
	assert.False(t, h.NavigatedDuringSubmit(destroyed))
	assert.False(t, h.LingeringModal())
}

func TestStateErrorUnwraps(t *testing.T) {
	cause := errors.New("add control not found")
	err := fmt.Errorf("run: %w", &StateError{State: StateOpenForm, Err: cause})

	var se *StateError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, StateOpenForm, se.State)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "OpenAddForm: add control not found", se.Error())
}
