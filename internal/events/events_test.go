package events

import (
	"errors"
	"testing"

	"github.com/socialpulse/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_AssignsUniqueIDs(t *testing.T) {
	a, err := NewEnvelope(TopicUserCreated, UserCreated{ID: 1, Email: "a@x.com"})
	require.NoError(t, err)
	b, err := NewEnvelope(TopicUserCreated, UserCreated{ID: 1, Email: "a@x.com"})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, TopicUserCreated, a.Topic)
}

func TestDecode_RoundTrip(t *testing.T) {
	env, err := NewEnvelope(TopicPostCreated, PostCreated{ID: 5, AuthorID: 3, Title: "hello"})
	require.NoError(t, err)

	body, err := env.Encode()
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, env.ID, decoded.ID)
	assert.Equal(t, TopicPostCreated, decoded.Topic)

	post, err := DecodePayload[PostCreated](decoded)
	require.NoError(t, err)
	assert.Equal(t, uint(5), post.ID)
	assert.Equal(t, uint(3), post.AuthorID)
}

func TestDecode_MalformedBody(t *testing.T) {
	_, err := Decode([]byte("{truncated"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMalformedEvent))
}

func TestDecode_MissingTopic(t *testing.T) {
	_, err := Decode([]byte(`{"id":"e1","payload":{}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMalformedEvent))
}

func TestDecodePayload_WrongShape(t *testing.T) {
	env, err := NewEnvelope(TopicUserCreated, map[string]any{"id": "seven"})
	require.NoError(t, err)

	_, err = DecodePayload[UserCreated](env)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMalformedEvent))
}
