package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in    string
		want  Role
		valid bool
	}{
		{"ADMIN", RoleAdmin, true},
		{"publisher", RolePublisher, true},
		{" Designer ", RoleDesigner, true},
		{"superuser", Role("SUPERUSER"), false},
		{"", Role(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestActor(t *testing.T) {
	assert.True(t, Actor{}.IsZero())
	assert.True(t, Actor{ID: 1}.IsZero())

	editor := Actor{ID: 7, Role: RoleEditor}
	assert.False(t, editor.IsZero())
	assert.True(t, editor.HasRole(RoleAdmin, RoleEditor))
	assert.False(t, editor.HasRole(RoleAdmin, RolePublisher))
	assert.False(t, editor.IsAdmin())
	assert.True(t, Actor{ID: 1, Role: RoleAdmin}.IsAdmin())
}
