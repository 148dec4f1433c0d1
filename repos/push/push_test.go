package push

import (
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errGone = errors.New("registration-token-not-registered")

func TestChunk(t *testing.T) {
	tokens := make([]string, 1201)
	for i := range tokens {
		tokens[i] = "t"
	}
	chunks := Chunk(tokens, MaxMulticastTokens)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[1], 500)
	assert.Len(t, chunks[2], 201)

	assert.Nil(t, Chunk(nil, 500))
	assert.Len(t, Chunk([]string{"a", "b"}, 0), 1)
}

func TestSummarizeCollectsOnlyUnregistered(t *testing.T) {
	tokens := []string{"token-1", "token-2", "token-3"}
	response := &messaging.BatchResponse{
		SuccessCount: 1,
		FailureCount: 2,
		Responses: []*messaging.SendResponse{
			{Success: true, MessageID: "m1"},
			{Success: false, Error: errGone},
			{Success: false, Error: errors.New("quota exceeded")},
		},
	}

	result := summarize(tokens, response, func(err error) bool { return errors.Is(err, errGone) })
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 2, result.FailureCount)
	assert.Equal(t, []string{"token-2"}, result.Unregistered)
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage([]string{"a"}, Notification{
		Title: "Jornada 15",
		Body:  "Cierra hoy",
		Data:  map[string]string{"url": "/quiniela/15"},
		Path:  "/quiniela/15",
	}, "https://quiniela.app")

	assert.Equal(t, []string{"a"}, msg.Tokens)
	assert.Equal(t, "Jornada 15", msg.Notification.Title)
	assert.Equal(t, "/quiniela/15", msg.Data["url"])
	assert.Equal(t, "high", msg.Webpush.Headers["Urgency"])
	assert.Equal(t, "https://quiniela.app/icons/icon-192.png", msg.Webpush.Notification.Icon)
	assert.Equal(t, "https://quiniela.app/quiniela/15", msg.Webpush.FCMOptions.Link)
}

func TestLink(t *testing.T) {
	assert.Equal(t, "https://quiniela.app/", link("https://quiniela.app", "/"))
	assert.Equal(t, "https://quiniela.app/podium", link("https://quiniela.app", "podium"))
	assert.Equal(t, "https://elsewhere.io/x", link("https://quiniela.app", "https://elsewhere.io/x"))
}
