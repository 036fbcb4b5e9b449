package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-client/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestClientList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/widgets", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]widget{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	var out []widget
	require.NoError(t, c.List(context.Background(), "widgets", &out))
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Name)
}

func TestClientFilterBuildsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("userId"))
		_ = json.NewEncoder(w).Encode([]widget{{ID: 1}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	var out []widget
	require.NoError(t, c.Filter(context.Background(), "widgets", "userId", "7", &out))
	assert.Len(t, out, 1)
}

func TestClientCreateSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in widget
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.ID = 42
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	var out widget
	require.NoError(t, c.Create(context.Background(), "widgets", widget{Name: "new"}, &out))
	assert.Equal(t, int64(42), out.ID)
	assert.Equal(t, "new", out.Name)
}

func TestClientClassifiesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "{}", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	var out widget
	err := c.Get(context.Background(), "widgets", 99, &out)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.False(t, apperr.IsTransient(err))
}

func TestClientClassifiesConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stale", http.StatusConflict)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.Delete(context.Background(), "widgets", 1)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestClientClassifiesClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.Create(context.Background(), "widgets", widget{}, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "bad payload")
}

func TestClientClassifiesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	var out []widget
	err := c.List(context.Background(), "widgets", &out)
	require.Error(t, err)
	assert.Equal(t, apperr.KindServerError, apperr.KindOf(err))
	assert.False(t, apperr.IsTransient(err), "an answering server is not a transport failure")
}

func TestClientClassifiesUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	c := NewClient(srv.URL, time.Second)
	var out []widget
	err := c.List(context.Background(), "widgets", &out)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNetworkUnreachable, apperr.KindOf(err))
	assert.True(t, apperr.IsTransient(err))
}

func TestClientClassifiesTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, 50*time.Millisecond)
	var out []widget
	err := c.List(context.Background(), "widgets", &out)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
	assert.True(t, apperr.IsTransient(err))
}
