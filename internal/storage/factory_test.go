package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_DetectsAlist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/public/settings" {
			w.Write([]byte(`{"code":200,"message":"success","data":{"title":"Alist"}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	kind, err := Probe(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, KindAlist, kind)
}

func TestProbe_FallsBackToWebDAV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	kind, err := Probe(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, KindWebDAV, kind)
}

func TestPool_InternsByConnectionIdentity(t *testing.T) {
	pool := NewPool(zerolog.Nop())

	opts := Options{URL: "http://a.local", Username: "u", Password: "p"}
	c1, err := pool.Get(KindWebDAV, opts)
	require.NoError(t, err)
	c2, err := pool.Get(KindWebDAV, opts)
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	c3, err := pool.Get(KindWebDAV, Options{URL: "http://a.local", Username: "u", Password: "other"})
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)

	pool.Clear()
	c4, err := pool.Get(KindWebDAV, opts)
	require.NoError(t, err)
	assert.NotSame(t, c1, c4)
}
