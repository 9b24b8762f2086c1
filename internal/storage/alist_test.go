package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAlist is a minimal Alist server for client tests.
type fakeAlist struct {
	t        *testing.T
	token    string
	requests []string

	listHandler   func(w http.ResponseWriter, body map[string]any)
	renameCalls   int32
	moveCalls     int32
	removeCalls   int32
	lastPutPath   string
	existsAnswers map[string]bool
}

func alistOK(w http.ResponseWriter, data any) {
	raw, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(map[string]any{"code": 200, "message": "success", "data": json.RawMessage(raw)})
}

func alistErr(w http.ResponseWriter, code int, msg string) {
	json.NewEncoder(w).Encode(map[string]any{"code": code, "message": msg, "data": nil})
}

func (f *fakeAlist) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r.URL.Path)

		if r.URL.Path == "/api/auth/login" {
			alistOK(w, map[string]string{"token": "tok-1"})
			return
		}
		if r.URL.Path == "/api/fs/put" {
			f.lastPutPath = r.Header.Get("File-Path")
			if r.Header.Get("Authorization") != f.token {
				alistErr(w, 401, "token is invalidated")
				return
			}
			alistOK(w, nil)
			return
		}

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)

		if f.token != "" && r.Header.Get("Authorization") != f.token {
			alistErr(w, 401, "token is invalidated")
			return
		}

		switch r.URL.Path {
		case "/api/fs/list":
			if f.listHandler != nil {
				f.listHandler(w, body)
				return
			}
			alistOK(w, map[string]any{"content": []map[string]any{
				{"name": "show", "is_dir": true, "size": 0, "modified": "2024-05-01T10:00:00+08:00"},
				{"name": "movie.mkv", "is_dir": false, "size": 123, "modified": "2024-05-01T10:00:00+08:00"},
			}, "total": 2})
		case "/api/fs/mkdir":
			alistErr(w, 500, "folder already exists")
		case "/api/fs/rename":
			atomic.AddInt32(&f.renameCalls, 1)
			alistOK(w, nil)
		case "/api/fs/copy":
			alistOK(w, nil)
		case "/api/fs/move":
			atomic.AddInt32(&f.moveCalls, 1)
			alistOK(w, nil)
		case "/api/fs/remove":
			atomic.AddInt32(&f.removeCalls, 1)
			alistOK(w, nil)
		case "/api/fs/get":
			path, _ := body["path"].(string)
			if ok, known := f.existsAnswers[path]; known && !ok {
				alistErr(w, 500, "object not found")
				return
			}
			alistOK(w, map[string]any{"name": "x", "is_dir": false, "raw_url": ""})
		default:
			f.t.Fatalf("unexpected endpoint %s", r.URL.Path)
		}
	})
}

func newAlistForTest(t *testing.T, f *fakeAlist) (*AlistClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c := NewAlistClient(Options{
		URL:      srv.URL,
		Username: "admin",
		Password: "secret",
		Sleep:    func(time.Duration) {},
	}, zerolog.Nop())
	return c, srv
}

func TestAlistList_CachesSecondCall(t *testing.T) {
	f := &fakeAlist{t: t}
	c, _ := newAlistForTest(t, f)

	entries, err := c.List(context.Background(), "/media")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "/media/movie.mkv", entries[1].Path)

	listCalls := countOf(f.requests, "/api/fs/list")
	_, err = c.List(context.Background(), "/media")
	require.NoError(t, err)
	assert.Equal(t, listCalls, countOf(f.requests, "/api/fs/list"), "second call should be served from cache")
}

func countOf(paths []string, want string) int {
	n := 0
	for _, p := range paths {
		if p == want {
			n++
		}
	}
	return n
}

func TestAlistList_ReloginOn401(t *testing.T) {
	f := &fakeAlist{t: t, token: "tok-1"}
	c, _ := newAlistForTest(t, f)

	// first request has no token -> 401 -> login -> retried with tok-1
	entries, err := c.List(context.Background(), "/media")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Contains(t, f.requests, "/api/auth/login")
}

func TestAlistList_RateLimitBackoff(t *testing.T) {
	f := &fakeAlist{t: t}
	limited := true
	f.listHandler = func(w http.ResponseWriter, body map[string]any) {
		if limited {
			limited = false
			alistErr(w, 429, "too many requests")
			return
		}
		alistOK(w, map[string]any{"content": []map[string]any{}, "total": 0})
	}

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	var slept []time.Duration
	c := NewAlistClient(Options{
		URL:   srv.URL,
		Sleep: func(d time.Duration) { slept = append(slept, d) },
	}, zerolog.Nop())

	_, err := c.List(context.Background(), "/media")
	require.NoError(t, err)
	require.Len(t, slept, 1, "exactly one backoff sleep expected")
	assert.Equal(t, rateLimitBackoff, slept[0])
}

func TestAlistList_RateLimitGivesUpAfterThreeWaits(t *testing.T) {
	f := &fakeAlist{t: t}
	f.listHandler = func(w http.ResponseWriter, body map[string]any) {
		alistErr(w, 429, "too many requests")
	}

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	var slept []time.Duration
	c := NewAlistClient(Options{
		URL:   srv.URL,
		Sleep: func(d time.Duration) { slept = append(slept, d) },
	}, zerolog.Nop())

	_, err := c.List(context.Background(), "/media")
	require.ErrorIs(t, err, ErrRateLimited)
	require.Len(t, slept, 3, "three backoffs, then give up without linear retries")
	for _, d := range slept {
		assert.Equal(t, rateLimitBackoff, d)
	}
}

func TestAlistMkdir_ExistsIsOK(t *testing.T) {
	f := &fakeAlist{t: t}
	c, _ := newAlistForTest(t, f)
	// fake answers 500 "folder already exists" for every mkdir
	assert.NoError(t, c.Mkdir(context.Background(), "/media/new"))
}

func TestAlistMove_SameDirUsesRename(t *testing.T) {
	f := &fakeAlist{t: t}
	c, _ := newAlistForTest(t, f)

	require.NoError(t, c.Move(context.Background(), "/media/a.mkv", "/media/b.mkv"))
	assert.EqualValues(t, 1, f.renameCalls)
	assert.EqualValues(t, 0, f.moveCalls)
}

func TestAlistMove_CrossDirThenRename(t *testing.T) {
	f := &fakeAlist{t: t}
	c, _ := newAlistForTest(t, f)

	require.NoError(t, c.Move(context.Background(), "/media/a.mkv", "/library/b.mkv"))
	assert.EqualValues(t, 1, f.moveCalls)
	assert.EqualValues(t, 1, f.renameCalls, "leaf name changed, rename should follow the move")
}

func TestAlistCopy_PollsDestination(t *testing.T) {
	f := &fakeAlist{t: t, existsAnswers: map[string]bool{}}
	c, _ := newAlistForTest(t, f)

	// destination appears immediately
	f.existsAnswers["/library/a.mkv"] = true
	require.NoError(t, c.Copy(context.Background(), "/media/a.mkv", "/library/a.mkv"))
	assert.EqualValues(t, 0, f.renameCalls, "same leaf name needs no rename")
}

func TestAlistUpload_EncodesFilePathHeader(t *testing.T) {
	f := &fakeAlist{t: t}
	c, _ := newAlistForTest(t, f)

	err := c.Upload(context.Background(), "/电视剧/Show [2024]/a.strm", []byte("url"))
	require.NoError(t, err)
	// fully escaped: CJK percent-encoded, slashes too
	assert.NotContains(t, f.lastPutPath, "/")
	assert.NotContains(t, f.lastPutPath, " ")
	assert.Contains(t, f.lastPutPath, "%2F")
}

func TestAlistDelete_SendsDirAndName(t *testing.T) {
	f := &fakeAlist{t: t}
	c, _ := newAlistForTest(t, f)

	require.NoError(t, c.Delete(context.Background(), "/media/old.mkv"))
	assert.EqualValues(t, 1, f.removeCalls)
}

func TestAlistDirectURL(t *testing.T) {
	c := NewAlistClient(Options{URL: "http://alist.local:5244"}, zerolog.Nop())
	got := c.DirectURL("/anime/Frieren [BD]/S01E01 file.mkv")
	assert.Equal(t, "http://alist.local:5244/d/anime/Frieren%20%5BBD%5D/S01E01%20file.mkv", got)
}
