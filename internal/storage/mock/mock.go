// Package mock provides an in-memory storage.Client for tests.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/strmforge/strmforge/internal/pathutil"
	"github.com/strmforge/strmforge/internal/storage"
)

// Client keeps a whole remote tree in memory and records every
// mutation so tests can assert on the operations performed.
type Client struct {
	mu    sync.Mutex
	kind  storage.Kind
	base  string
	files map[string][]byte
	dirs  map[string]struct{}

	// failure injection
	ListErrs   map[string]error
	UploadErrs map[string]error
	MoveErr    error
	CopyErr    error

	// recorded operations
	Moves     [][2]string
	Copies    [][2]string
	Deleted   []string
	Uploads   []string
	Refreshed []string
	Mkdirs    []string

	// DirectURLFunc overrides DirectURL when set.
	DirectURLFunc func(path string) string
}

// New creates an empty mock client.
func New() *Client {
	return &Client{
		kind:       storage.KindAlist,
		base:       "http://mock.local",
		files:      make(map[string][]byte),
		dirs:       map[string]struct{}{"/": {}},
		ListErrs:   make(map[string]error),
		UploadErrs: make(map[string]error),
	}
}

// NewWithKind creates a mock posing as the given backend kind.
func NewWithKind(kind storage.Kind, baseURL string) *Client {
	c := New()
	c.kind = kind
	c.base = baseURL
	return c
}

// AddFile registers a file and all its ancestor directories.
func (c *Client) AddFile(path string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path = pathutil.Normalize(path)
	c.files[path] = data
	c.addAncestors(path)
}

// AddDir registers a directory and its ancestors.
func (c *Client) AddDir(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path = pathutil.Normalize(path)
	c.dirs[path] = struct{}{}
	c.addAncestors(path + "/x")
}

func (c *Client) addAncestors(path string) {
	dir := pathutil.Dir(path)
	for {
		c.dirs[dir] = struct{}{}
		if dir == "/" {
			break
		}
		dir = pathutil.Dir(dir)
	}
}

// HasFile reports whether the path exists as a file.
func (c *Client) HasFile(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.files[pathutil.Normalize(path)]
	return ok
}

// FileContent returns a stored file's bytes.
func (c *Client) FileContent(path string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files[pathutil.Normalize(path)]
}

func (c *Client) List(ctx context.Context, path string) ([]storage.FileInfo, error) {
	return c.ListUncached(ctx, path)
}

func (c *Client) ListUncached(ctx context.Context, path string) ([]storage.FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path = pathutil.Normalize(path)
	if err, ok := c.ListErrs[path]; ok {
		return nil, err
	}

	var entries []storage.FileInfo
	for d := range c.dirs {
		if d != "/" && pathutil.Dir(d) == path && d != path {
			entries = append(entries, storage.FileInfo{Path: d, Name: pathutil.Base(d), IsDir: true})
		}
	}
	for f, data := range c.files {
		if pathutil.Dir(f) == path {
			entries = append(entries, storage.FileInfo{Path: f, Name: pathutil.Base(f), Size: int64(len(data))})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (c *Client) Mkdir(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	path = pathutil.Normalize(path)
	c.Mkdirs = append(c.Mkdirs, path)
	c.dirs[path] = struct{}{}
	c.addAncestors(path + "/x")
	return nil
}

func (c *Client) Move(ctx context.Context, src, dst string) error {
	if c.MoveErr != nil {
		return c.MoveErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	src, dst = pathutil.Normalize(src), pathutil.Normalize(dst)
	data, ok := c.files[src]
	if !ok {
		return fmt.Errorf("mock: move source %s not found", src)
	}
	delete(c.files, src)
	c.files[dst] = data
	c.addAncestors(dst)
	c.Moves = append(c.Moves, [2]string{src, dst})
	return nil
}

func (c *Client) Copy(ctx context.Context, src, dst string) error {
	if c.CopyErr != nil {
		return c.CopyErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	src, dst = pathutil.Normalize(src), pathutil.Normalize(dst)
	data, ok := c.files[src]
	if !ok {
		return fmt.Errorf("mock: copy source %s not found", src)
	}
	c.files[dst] = data
	c.addAncestors(dst)
	c.Copies = append(c.Copies, [2]string{src, dst})
	return nil
}

func (c *Client) Delete(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	path = pathutil.Normalize(path)
	delete(c.files, path)
	delete(c.dirs, path)
	c.Deleted = append(c.Deleted, path)
	return nil
}

func (c *Client) Upload(ctx context.Context, path string, data []byte) error {
	return c.upload(path, data)
}

func (c *Client) upload(path string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	path = pathutil.Normalize(path)
	if err, ok := c.UploadErrs[path]; ok && err != nil {
		return err
	}
	c.files[path] = data
	c.addAncestors(path)
	c.Uploads = append(c.Uploads, path)
	return nil
}

func (c *Client) UploadBatch(ctx context.Context, files []storage.UploadFile) storage.BatchResult {
	var result storage.BatchResult
	for _, f := range files {
		if err := c.upload(f.Path, f.Data); err != nil {
			result.Failed++
			result.FailedPaths = append(result.FailedPaths, f.Path)
		} else {
			result.Succeeded++
		}
	}
	return result
}

func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.files[pathutil.Normalize(path)]
	if !ok {
		return nil, fmt.Errorf("mock: %w: %s", storage.ErrNotFound, path)
	}
	return data, nil
}

func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path = pathutil.Normalize(path)
	if _, ok := c.files[path]; ok {
		return true, nil
	}
	_, ok := c.dirs[path]
	return ok, nil
}

func (c *Client) RefreshDir(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Refreshed = append(c.Refreshed, pathutil.Normalize(path))
	return nil
}

func (c *Client) RefreshDirs(ctx context.Context, dirs []string) error {
	for _, d := range dirs {
		c.RefreshDir(ctx, d)
	}
	return nil
}

func (c *Client) DirectURL(path string) string {
	if c.DirectURLFunc != nil {
		return c.DirectURLFunc(path)
	}
	return c.base + pathutil.Normalize(path)
}

func (c *Client) Kind() storage.Kind { return c.kind }
func (c *Client) BaseURL() string    { return c.base }
