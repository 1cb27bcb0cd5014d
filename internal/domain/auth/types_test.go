package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peoplehub/portal-api/internal/domain/model"
)

func TestSessionIsAdmin(t *testing.T) {
	assert.True(t, Session{Role: model.RoleAdmin}.IsAdmin())
	assert.False(t, Session{Role: model.RoleStaff}.IsAdmin())
	assert.False(t, Session{}.IsAdmin())
}
