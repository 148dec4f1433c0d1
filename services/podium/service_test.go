package podium

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	store "github.com/nvbf/quiniela/repos/store"
)

type fakeStore struct {
	users     []*store.User
	lastLimit int
	err       error
}

func (f *fakeStore) TopUsers(_ context.Context, limit int) ([]*store.User, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.users) {
		return f.users[:limit], nil
	}
	return f.users, nil
}

func TestGetPodiumRanksTies(t *testing.T) {
	fake := &fakeStore{users: []*store.User{
		{UID: "a", Nombre: "Ana", PuntosTotales: 40},
		{UID: "b", Nombre: "Beto", PuntosTotales: 35},
		{UID: "c", Nombre: "Carla", PuntosTotales: 35},
		{UID: "d", Nombre: "Dani", PuntosTotales: 20},
	}}
	service := NewPodiumService(fake)

	entries, err := service.GetPodium(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, fake.lastLimit)

	ranks := []int{}
	for _, e := range entries {
		ranks = append(ranks, e.Rank)
	}
	assert.Equal(t, []int{1, 2, 2, 4}, ranks)
	assert.Equal(t, "Carla", entries[2].Nombre)
}

func TestGetPodiumClampsLimit(t *testing.T) {
	fake := &fakeStore{}
	service := NewPodiumService(fake)

	_, err := service.GetPodium(context.Background(), 5000)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, fake.lastLimit)
}

func TestPodiumHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &fakeStore{users: []*store.User{
		{UID: "a", Nombre: "Ana", PuntosTotales: 40},
		{UID: "b", Nombre: "Beto", PuntosTotales: 12},
	}}
	router := gin.New()
	NewHTTPHandler(HTTPOptions{Service: NewPodiumService(fake), Router: router.Group("/podium/v1")})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/podium/v1?limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Podium []Entry `json:"podium"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Podium, 1)
	assert.Equal(t, "a", body.Podium[0].UID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/podium/v1?limit=-3", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	fake.err = errors.New("unavailable")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/podium/v1", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
