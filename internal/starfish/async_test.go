// ABOUTME: Tests for the async query submit-and-poll state machine.
// ABOUTME: Drives an httptest backend through the immediate, polling, race, and timeout paths.

package starfish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asyncTestEntries = `[{"_id":1,"fn":"a.txt","type":32768,"size":10},{"_id":2,"fn":"b.txt","type":32768,"size":20}]`

// asyncBackend scripts the three async endpoints and counts hits.
type asyncBackend struct {
	submit       http.HandlerFunc
	status       http.HandlerFunc
	result       http.HandlerFunc
	statusCalls  atomic.Int64
	resultCalls  atomic.Int64
	capturedBody atomic.Pointer[asyncSubmitBody]
}

func (b *asyncBackend) client(t *testing.T) *Client {
	t.Helper()

	auth := &authStub{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.handle(w, r) {
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/async/query/":
			var body asyncSubmitBody
			_ = json.NewDecoder(r.Body).Decode(&body)
			b.capturedBody.Store(&body)
			b.submit(w, r)
		case r.URL.Path == "/async/query/q-1":
			b.statusCalls.Add(1)
			b.status(w, r)
		default:
			b.resultCalls.Add(1)
			if b.result != nil {
				b.result(w, r)
				return
			}
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{
		Endpoint:     srv.URL,
		Username:     "admin",
		Password:     "secret",
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestAsyncQuery_ImmediateCompletionSkipsPolling(t *testing.T) {
	backend := &asyncBackend{
		submit: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(asyncTestEntries))
		},
		status: func(w http.ResponseWriter, r *http.Request) {
			t.Error("status endpoint must not be polled on inline completion")
		},
	}
	client := backend.client(t)

	entries, err := client.AsyncQuery(context.Background(), AsyncQueryRequest{
		Queries: []string{"type=f"},
	})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, int64(0), backend.statusCalls.Load())
}

func TestAsyncQuery_ImmediateEmptyArray(t *testing.T) {
	backend := &asyncBackend{
		submit: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
	}
	client := backend.client(t)

	entries, err := client.AsyncQuery(context.Background(), AsyncQueryRequest{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestAsyncQuery_PollsUntilDone(t *testing.T) {
	var statusHits atomic.Int64
	backend := &asyncBackend{}
	backend.submit = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"query_id": "q-1"})
	}
	backend.status = func(w http.ResponseWriter, r *http.Request) {
		if statusHits.Add(1) < 2 {
			writeJSON(w, map[string]any{"is_done": false})
			return
		}
		writeJSON(w, map[string]any{"is_done": true, "location": "/async/query_result/q-1"})
	}
	backend.result = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/async/query_result/q-1", r.URL.Path)
		_, _ = w.Write([]byte(asyncTestEntries))
	}
	client := backend.client(t)

	entries, err := client.AsyncQuery(context.Background(), AsyncQueryRequest{
		Queries: []string{"size>1024"},
	})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, int64(2), backend.statusCalls.Load())
	assert.Equal(t, int64(1), backend.resultCalls.Load())
}

func TestAsyncQuery_SubmitBodyDefaults(t *testing.T) {
	backend := &asyncBackend{
		submit: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
	}
	client := backend.client(t)

	_, err := client.AsyncQuery(context.Background(), AsyncQueryRequest{})
	require.NoError(t, err)

	body := backend.capturedBody.Load()
	require.NotNil(t, body)
	assert.NotNil(t, body.VolumesAndPaths)
	assert.NotNil(t, body.Queries)
	assert.Equal(t, asyncFormatFields, body.Format)
	assert.Equal(t, 5.0, body.AsyncAfterSec)
	assert.Equal(t, "json", body.OutputFormat)
	assert.True(t, body.WithoutPrivateTags)
	assert.False(t, body.ForceTagInherit)
}

func TestAsyncQuery_ToleratesResultNotReadyRace(t *testing.T) {
	// is_done=true but the result endpoint answers 400 until the second
	// fetch. The loop must treat that as "not yet" and succeed next tick.
	var resultHits atomic.Int64
	backend := &asyncBackend{}
	backend.submit = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"query_id": "q-1"})
	}
	backend.status = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"is_done": true, "location": "/async/query_result/q-1"})
	}
	backend.result = func(w http.ResponseWriter, r *http.Request) {
		if resultHits.Add(1) == 1 {
			http.Error(w, "results not ready", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(asyncTestEntries))
	}
	client := backend.client(t)

	entries, err := client.AsyncQuery(context.Background(), AsyncQueryRequest{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.GreaterOrEqual(t, backend.statusCalls.Load(), int64(2))
}

func TestAsyncQuery_StatusNotFoundIsTransient(t *testing.T) {
	// Right after submission the status endpoint can 404 while the query
	// registers. That must be retried, not surfaced.
	var statusHits atomic.Int64
	backend := &asyncBackend{}
	backend.submit = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"query_id": "q-1"})
	}
	backend.status = func(w http.ResponseWriter, r *http.Request) {
		if statusHits.Add(1) == 1 {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"is_done": true})
	}
	backend.result = func(w http.ResponseWriter, r *http.Request) {
		// Empty location falls back to the canonical result path.
		assert.Equal(t, "/async/query_result/q-1", r.URL.Path)
		_, _ = w.Write([]byte(asyncTestEntries))
	}
	client := backend.client(t)

	entries, err := client.AsyncQuery(context.Background(), AsyncQueryRequest{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAsyncQuery_TimesOutAfterBudget(t *testing.T) {
	backend := &asyncBackend{}
	backend.submit = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"query_id": "q-1"})
	}
	backend.status = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"is_done": false})
	}
	client := backend.client(t)

	// Timeout of twice the poll interval allows exactly two status checks.
	_, err := client.AsyncQuery(context.Background(), AsyncQueryRequest{
		Timeout: 20 * time.Millisecond,
	})
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeAsyncQueryTimeout, apiErr.Code)
	assert.Equal(t, "q-1", apiErr.QueryID)
	assert.Equal(t, 2, apiErr.Attempts)
	assert.Equal(t, int64(2), backend.statusCalls.Load())
}

func TestAsyncQuery_FatalStatusErrorStopsPolling(t *testing.T) {
	backend := &asyncBackend{}
	backend.submit = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"query_id": "q-1"})
	}
	backend.status = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
	client := backend.client(t)

	_, err := client.AsyncQuery(context.Background(), AsyncQueryRequest{})
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeAPIError, apiErr.Code)
	assert.Equal(t, int64(1), backend.statusCalls.Load())
}

func TestAsyncQuery_SubmitWithoutQueryIDFails(t *testing.T) {
	backend := &asyncBackend{
		submit: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"status": "accepted"})
		},
	}
	client := backend.client(t)

	_, err := client.AsyncQuery(context.Background(), AsyncQueryRequest{})
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeAsyncQueryFailed, apiErr.Code)
}

func TestAsyncQuery_ContextCancellation(t *testing.T) {
	backend := &asyncBackend{}
	backend.submit = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"query_id": "q-1"})
	}
	backend.status = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"is_done": false})
	}
	client := backend.client(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.AsyncQuery(ctx, AsyncQueryRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeSubmitResponse(t *testing.T) {
	res, err := decodeSubmitResponse(json.RawMessage(`[{"_id":1,"fn":"x"}]`))
	require.NoError(t, err)
	assert.Len(t, res.entries, 1)
	assert.Empty(t, res.queryID)

	res, err = decodeSubmitResponse(json.RawMessage(`{"query_id":"abc"}`))
	require.NoError(t, err)
	assert.Nil(t, res.entries)
	assert.Equal(t, "abc", res.queryID)

	_, err = decodeSubmitResponse(json.RawMessage(`{"unexpected":true}`))
	assert.Error(t, err)
}
