package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/models"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, models.StatusPending.CanTransitionTo(models.StatusCompleted))
	assert.True(t, models.StatusPending.CanTransitionTo(models.StatusFailed))

	// Terminal states never move again.
	assert.False(t, models.StatusCompleted.CanTransitionTo(models.StatusFailed))
	assert.False(t, models.StatusCompleted.CanTransitionTo(models.StatusPending))
	assert.False(t, models.StatusFailed.CanTransitionTo(models.StatusCompleted))
	assert.False(t, models.StatusPending.CanTransitionTo(models.StatusPending))
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, models.StatusPending.IsTerminal())
	assert.True(t, models.StatusCompleted.IsTerminal())
	assert.True(t, models.StatusFailed.IsTerminal())
}
