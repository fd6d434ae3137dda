package game

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPlayRoundTrip(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(TurnOutcome{
			Response:              "You are in a forest.",
			LocationName:          "Forest",
			Moves:                 3,
			Score:                 5,
			PreviousLocationName:  "West of House",
			LastMovementDirection: "NORTH",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "sess-1", 5*time.Second, zap.NewNop())
	outcome, err := c.Play(context.Background(), "GO NORTH")
	require.NoError(t, err)

	assert.Equal(t, "GO NORTH", gotBody["Input"])
	assert.Equal(t, "sess-1", gotBody["SessionId"])
	assert.Equal(t, "Forest", outcome.LocationName)
	assert.Equal(t, 5, outcome.Score)
	assert.Equal(t, "NORTH", outcome.LastMovementDirection)
}

func TestPlayNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "game exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, "sess-1", 5*time.Second, zap.NewNop())
	_, err := c.Play(context.Background(), "LOOK")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestPlayHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClient(server.URL, "sess-1", 5*time.Second, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Play(ctx, "LOOK")
	require.Error(t, err)
}
