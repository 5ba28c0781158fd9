package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// setupTestServer creates a new test server and a Client configured to use it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, 1000, 10, time.Minute, zap.NewNop())
	return client, server
}

func TestDecimals(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/decimals", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"decimals": 8}`))
		})
		client, server := setupTestServer(handler)
		defer server.Close()

		// Act
		decimals, err := client.Decimals(context.Background())

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, uint8(8), decimals)
	})

	t.Run("Cached", func(t *testing.T) {
		// Arrange
		var hits int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"decimals": 18}`))
		})
		client, server := setupTestServer(handler)
		defer server.Close()

		// Act
		for i := 0; i < 5; i++ {
			decimals, err := client.Decimals(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, uint8(18), decimals)
		}

		// Assert: only the first call reached the feed.
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("APIError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		client, server := setupTestServer(handler)
		defer server.Close()

		_, err := client.Decimals(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "decimals request failed")
	})
}

func TestLatestRoundData(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rounds/latest", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"round_id": 42,
				"answer": "1234567890",
				"started_at": 1700000000,
				"updated_at": 1700000060,
				"answered_in_round": 42
			}`))
		})
		client, server := setupTestServer(handler)
		defer server.Close()

		// Act
		round, err := client.LatestRoundData(context.Background())

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, uint64(42), round.RoundID)
		assert.Equal(t, "1234567890", round.Answer.String())
		assert.Equal(t, int64(1700000060), round.UpdatedAt)
	})

	t.Run("NegativeAnswer", func(t *testing.T) {
		// A faulted feed can publish a negative price; the client passes
		// it through for the oracle to reject.
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"round_id": 1, "answer": "-5", "answered_in_round": 1}`))
		})
		client, server := setupTestServer(handler)
		defer server.Close()

		round, err := client.LatestRoundData(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, -1, round.Answer.Sign())
	})

	t.Run("UnparseableAnswer", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"round_id": 1, "answer": "not-a-number"}`))
		})
		client, server := setupTestServer(handler)
		defer server.Close()

		_, err := client.LatestRoundData(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unparseable answer")
	})
}
