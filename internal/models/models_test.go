package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_Normalize(t *testing.T) {
	p := Post{ID: "1", Likes: []string{"u2", "u1", "u2", "u3", "u1"}}

	got := p.Normalize()

	assert.Equal(t, []string{"u2", "u1", "u3"}, got.Likes)
	assert.NotNil(t, got.Comments)
	assert.Empty(t, got.Comments)
	// the receiver is untouched
	assert.Len(t, p.Likes, 5)
}

func TestPost_LikedBy(t *testing.T) {
	p := Post{Likes: []string{"u1"}}
	assert.True(t, p.LikedBy("u1"))
	assert.False(t, p.LikedBy("u2"))
}

func TestProfileUpdate_Apply(t *testing.T) {
	name := "Ada"
	bio := ""
	user := User{ID: "u1", Name: "ada", Email: "ada@example.com", Bio: "hi", Location: "London"}

	got := ProfileUpdate{Name: &name, Bio: &bio}.Apply(user)

	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "", got.Bio)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "London", got.Location)
	assert.Equal(t, "u1", got.ID)
	assert.True(t, ProfileUpdate{}.Empty())
	assert.False(t, ProfileUpdate{Name: &name}.Empty())
}

func TestAppError_Codes(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("add post: %w", NewStorageError("write", cause))

	assert.True(t, IsStorage(err))
	assert.False(t, IsValidation(err))
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsNotAuthenticated(ErrNotAuthenticated))
	assert.True(t, IsValidation(NewValidationError("content is required")))
}

func TestResponse(t *testing.T) {
	resp := Response(NewStorageError("write", errors.New("quota exceeded")))
	require.Equal(t, CodeStorage, resp.Code)
	assert.Equal(t, "storage write failed", resp.Error)
	assert.Equal(t, "quota exceeded", resp.Details)

	plain := Response(errors.New("boom"))
	assert.Equal(t, "boom", plain.Error)
	assert.Empty(t, plain.Code)
}
