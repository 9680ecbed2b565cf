package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storyarchive/internal/story/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJournal struct {
	limit  int
	events []model.DispatchEvent
	err    error
}

func (f *fakeJournal) Recent(_ context.Context, limit int) ([]model.DispatchEvent, error) {
	f.limit = limit
	return f.events, f.err
}

func TestListDispatches(t *testing.T) {
	j := &fakeJournal{events: []model.DispatchEvent{
		{StoryID: "b", Visibility: "anonymous", Status: model.StatusFailed, Items: 3, Emitted: 1, Error: "timeout"},
		{StoryID: "a", OwnerID: 42, Visibility: "attributed", Status: model.StatusPublished, Items: 2, Emitted: 2},
	}}
	h := NewJournalHandler(j)

	rec := httptest.NewRecorder()
	h.ListDispatches(rec, httptest.NewRequest(http.MethodGet, "/api/dispatches", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultJournalLimit, j.limit)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []model.DispatchEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].StoryID)
	assert.Equal(t, int64(0), got[0].OwnerID)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotContains(t, raw[0], "owner_id", "anonymous entries carry no owner")
	assert.Contains(t, raw[1], "owner_id")
}

func TestListDispatchesLimit(t *testing.T) {
	j := &fakeJournal{}
	h := NewJournalHandler(j)

	rec := httptest.NewRecorder()
	h.ListDispatches(rec, httptest.NewRequest(http.MethodGet, "/api/dispatches?limit=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, j.limit)

	h.ListDispatches(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/dispatches?limit=100000", nil))
	assert.Equal(t, maxJournalLimit, j.limit)

	for _, bad := range []string{"0", "-3", "ten"} {
		rec := httptest.NewRecorder()
		h.ListDispatches(rec, httptest.NewRequest(http.MethodGet, "/api/dispatches?limit="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestListDispatchesFailure(t *testing.T) {
	h := NewJournalHandler(&fakeJournal{err: errors.New("db down")})
	rec := httptest.NewRecorder()
	h.ListDispatches(rec, httptest.NewRequest(http.MethodGet, "/api/dispatches", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
