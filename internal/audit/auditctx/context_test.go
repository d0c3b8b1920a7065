package auditctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithFrom(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)

	ac := Context{
		ActorID:         "user-7",
		ActorStableCode: "A-7Q2LX",
		ReasonCode:      "typo",
		Source:          "ui:measurements",
		Roles:           []string{"technician"},
	}
	ctx := With(context.Background(), ac)

	got, ok := From(ctx)
	assert.True(t, ok)
	assert.Equal(t, ac, got)
}

func TestHasRole(t *testing.T) {
	ac := Context{Roles: []string{"technician", "lab_manager"}}
	assert.True(t, ac.HasRole("lab_manager"))
	assert.False(t, ac.HasRole("admin"))
	assert.False(t, Context{}.HasRole("technician"))
}
