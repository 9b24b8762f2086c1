package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/strmforge/strmforge/internal/pathutil"
)

// AlistClient talks to an Alist server through its JSON REST API.
// All filesystem endpoints are POSTs under /api/fs; responses carry an
// envelope whose code field decides success regardless of HTTP status.
type AlistClient struct {
	base

	mu    sync.Mutex
	token string
}

// NewAlistClient creates a client. No network call is made until the
// first operation; login happens lazily on the first 401.
func NewAlistClient(opts Options, logger zerolog.Logger) *AlistClient {
	return &AlistClient{base: newBase(opts, "alist", logger)}
}

func (c *AlistClient) Kind() Kind      { return KindAlist }
func (c *AlistClient) BaseURL() string { return c.baseURL }

// DirectURL returns the raw-content link Alist serves under /d.
func (c *AlistClient) DirectURL(path string) string {
	return c.baseURL + "/d" + encodeURI(pathutil.Normalize(path))
}

type alistEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type alistEntry struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	IsDir    bool   `json:"is_dir"`
	Modified string `json:"modified"`
}

type alistListData struct {
	Content []alistEntry `json:"content"`
	Total   int          `json:"total"`
}

type alistGetData struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	IsDir  bool   `json:"is_dir"`
	RawURL string `json:"raw_url"`
}

// login fetches a fresh token via /api/auth/login.
func (c *AlistClient) login(ctx context.Context) error {
	payload, _ := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("alist login: %w", err)
	}
	defer resp.Body.Close()

	var env alistEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("alist login: decode response: %w", err)
	}
	if env.Code != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrAuthFailed, env.Message)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		return fmt.Errorf("%w: empty token", ErrAuthFailed)
	}
	c.mu.Lock()
	c.token = data.Token
	c.mu.Unlock()
	c.logger.Debug().Msg("alist login ok")
	return nil
}

func (c *AlistClient) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func isTooMany(message string) bool {
	return strings.Contains(strings.ToLower(message), "too many")
}

// call posts a JSON body to an /api/fs endpoint and returns the
// envelope. A 401 triggers one re-login and retry; rate limiting
// (HTTP 429, envelope 429 or a "too many requests" message) backs off
// for five seconds and retries without consuming a retry attempt.
func (c *AlistClient) call(ctx context.Context, endpoint string, body any) (*alistEnvelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	relogged := false
	waits := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if tok := c.currentToken(); tok != "" {
			req.Header.Set("Authorization", tok)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("alist %s: %w", endpoint, err)
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("alist %s: read body: %w", endpoint, err)
		}

		var env alistEnvelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil {
			if resp.StatusCode == http.StatusTooManyRequests {
				env.Code = http.StatusTooManyRequests
			} else {
				return nil, fmt.Errorf("alist %s: status %d: %w", endpoint, resp.StatusCode, jsonErr)
			}
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || env.Code == http.StatusTooManyRequests || isTooMany(env.Message):
			if waits >= maxRateLimitWaits {
				return nil, ErrRateLimited
			}
			waits++
			c.logger.Warn().Str("endpoint", endpoint).Msg("alist rate limited, backing off")
			c.sleep(rateLimitBackoff)
			continue
		case resp.StatusCode == http.StatusUnauthorized || env.Code == http.StatusUnauthorized:
			if relogged {
				return nil, fmt.Errorf("%w: %s", ErrAuthFailed, env.Message)
			}
			relogged = true
			if err := c.login(ctx); err != nil {
				return nil, err
			}
			continue
		}
		return &env, nil
	}
}

// List returns the cached listing for path, fetching on a miss.
func (c *AlistClient) List(ctx context.Context, path string) ([]FileInfo, error) {
	path = pathutil.Normalize(path)
	if entries, ok := c.cache.get(path); ok {
		return entries, nil
	}
	entries, err := c.ListUncached(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.put(path, entries)
	return entries, nil
}

// ListUncached always asks the server.
func (c *AlistClient) ListUncached(ctx context.Context, path string) ([]FileInfo, error) {
	path = pathutil.Normalize(path)
	var entries []FileInfo
	err := c.retry.do(ctx, func() error {
		if err := c.gate.wait(ctx); err != nil {
			return err
		}
		env, err := c.call(ctx, "/api/fs/list", map[string]any{
			"path":     path,
			"refresh":  false,
			"page":     1,
			"per_page": 0,
		})
		if err != nil {
			return err
		}
		if env.Code != http.StatusOK {
			return fmt.Errorf("alist list %s: %s", path, env.Message)
		}
		var data alistListData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("alist list %s: decode: %w", path, err)
		}
		entries = make([]FileInfo, 0, len(data.Content))
		for _, e := range data.Content {
			entries = append(entries, FileInfo{
				Path:     pathutil.Join(path, e.Name),
				Name:     e.Name,
				IsDir:    e.IsDir,
				Size:     e.Size,
				Modified: parseAlistTime(e.Modified),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func parseAlistTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Mkdir creates a directory, parents included. Alist answers 500 when
// the directory already exists; that counts as success.
func (c *AlistClient) Mkdir(ctx context.Context, path string) error {
	path = pathutil.Normalize(path)
	err := c.retry.do(ctx, func() error {
		if err := c.gate.wait(ctx); err != nil {
			return err
		}
		env, err := c.call(ctx, "/api/fs/mkdir", map[string]any{"path": path})
		if err != nil {
			return err
		}
		if env.Code != http.StatusOK && env.Code != http.StatusInternalServerError {
			return fmt.Errorf("alist mkdir %s: %s", path, env.Message)
		}
		return nil
	})
	if err == nil {
		c.invalidateAround(path)
	}
	return err
}

// Move renames within a directory or moves across directories. A
// cross-directory move that also changes the leaf name is a move
// followed by a rename.
func (c *AlistClient) Move(ctx context.Context, src, dst string) error {
	src, dst = pathutil.Normalize(src), pathutil.Normalize(dst)
	srcDir, dstDir := pathutil.Dir(src), pathutil.Dir(dst)
	srcName, dstName := pathutil.Base(src), pathutil.Base(dst)

	var err error
	if srcDir == dstDir {
		err = c.rename(ctx, src, dstName)
	} else {
		err = c.retry.do(ctx, func() error {
			if err := c.gate.wait(ctx); err != nil {
				return err
			}
			env, err := c.call(ctx, "/api/fs/move", map[string]any{
				"src_dir": srcDir,
				"dst_dir": dstDir,
				"names":   []string{srcName},
			})
			if err != nil {
				return err
			}
			if env.Code != http.StatusOK {
				return fmt.Errorf("alist move %s -> %s: %s", src, dst, env.Message)
			}
			return nil
		})
		if err == nil && srcName != dstName {
			err = c.rename(ctx, pathutil.Join(dstDir, srcName), dstName)
		}
	}
	if err == nil {
		c.invalidateAround(src)
		c.invalidateAround(dst)
	}
	return err
}

func (c *AlistClient) rename(ctx context.Context, path, newName string) error {
	return c.retry.do(ctx, func() error {
		if err := c.gate.wait(ctx); err != nil {
			return err
		}
		env, err := c.call(ctx, "/api/fs/rename", map[string]any{
			"path": path,
			"name": newName,
		})
		if err != nil {
			return err
		}
		if env.Code != http.StatusOK {
			return fmt.Errorf("alist rename %s: %s", path, env.Message)
		}
		return nil
	})
}

// copyPoll bounds the wait for Alist's asynchronous copy task.
const (
	copyPollInterval = 500 * time.Millisecond
	copyPollTimeout  = 30 * time.Second
)

// Copy schedules a server-side copy and polls the destination until it
// appears. Alist copies asynchronously, so a poll timeout is treated
// optimistically: the task was accepted and will usually finish later.
func (c *AlistClient) Copy(ctx context.Context, src, dst string) error {
	src, dst = pathutil.Normalize(src), pathutil.Normalize(dst)
	srcDir, dstDir := pathutil.Dir(src), pathutil.Dir(dst)
	srcName, dstName := pathutil.Base(src), pathutil.Base(dst)

	err := c.retry.do(ctx, func() error {
		if err := c.gate.wait(ctx); err != nil {
			return err
		}
		env, err := c.call(ctx, "/api/fs/copy", map[string]any{
			"src_dir": srcDir,
			"dst_dir": dstDir,
			"names":   []string{srcName},
		})
		if err != nil {
			return err
		}
		if env.Code != http.StatusOK {
			return fmt.Errorf("alist copy %s -> %s: %s", src, dst, env.Message)
		}
		return nil
	})
	if err != nil {
		return err
	}

	copied := pathutil.Join(dstDir, srcName)
	deadline := time.Now().Add(copyPollTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := c.Exists(ctx, copied)
		if err == nil && ok {
			break
		}
		c.sleep(copyPollInterval)
	}

	if srcName != dstName {
		if err := c.rename(ctx, copied, dstName); err != nil {
			return err
		}
	}
	c.invalidateAround(dst)
	return nil
}

// Delete removes a file or directory.
func (c *AlistClient) Delete(ctx context.Context, path string) error {
	path = pathutil.Normalize(path)
	err := c.retry.do(ctx, func() error {
		if err := c.gate.wait(ctx); err != nil {
			return err
		}
		env, err := c.call(ctx, "/api/fs/remove", map[string]any{
			"dir":   pathutil.Dir(path),
			"names": []string{pathutil.Base(path)},
		})
		if err != nil {
			return err
		}
		if env.Code != http.StatusOK {
			return fmt.Errorf("alist remove %s: %s", path, env.Message)
		}
		return nil
	})
	if err == nil {
		c.invalidateAround(path)
	}
	return err
}

// Exists probes a path via /api/fs/get.
func (c *AlistClient) Exists(ctx context.Context, path string) (bool, error) {
	path = pathutil.Normalize(path)
	if err := c.gate.wait(ctx); err != nil {
		return false, err
	}
	env, err := c.call(ctx, "/api/fs/get", map[string]any{"path": path})
	if err != nil {
		return false, err
	}
	return env.Code == http.StatusOK, nil
}

// Upload writes data through the rate gate.
func (c *AlistClient) Upload(ctx context.Context, path string, data []byte) error {
	if err := c.gate.wait(ctx); err != nil {
		return err
	}
	return c.retry.do(ctx, func() error {
		return c.put(ctx, path, data)
	})
}

// uploadDirect writes data without the gate; used by batch uploads.
func (c *AlistClient) uploadDirect(ctx context.Context, path string, data []byte) error {
	return c.retry.do(ctx, func() error {
		return c.put(ctx, path, data)
	})
}

// put performs the actual PUT /api/fs/put. The target path travels in
// the File-Path header, fully percent-encoded.
func (c *AlistClient) put(ctx context.Context, path string, data []byte) error {
	path = pathutil.Normalize(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/fs/put", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("File-Path", encodeHeaderPath(path))
	req.Header.Set("Content-Type", "application/octet-stream")
	if tok := c.currentToken(); tok != "" {
		req.Header.Set("Authorization", tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("alist put %s: %w", path, err)
	}
	defer resp.Body.Close()

	var env alistEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("alist put %s: status %d: %w", path, resp.StatusCode, err)
	}
	if env.Code == http.StatusUnauthorized {
		if err := c.login(ctx); err != nil {
			return err
		}
		return fmt.Errorf("alist put %s: unauthorized, token refreshed", path)
	}
	if env.Code != http.StatusOK {
		return fmt.Errorf("alist put %s: %s", path, env.Message)
	}
	c.invalidateAround(path)
	return nil
}

// Download resolves the raw URL via /api/fs/get and fetches it.
func (c *AlistClient) Download(ctx context.Context, path string) ([]byte, error) {
	path = pathutil.Normalize(path)
	if err := c.gate.wait(ctx); err != nil {
		return nil, err
	}

	var rawURL string
	err := c.retry.do(ctx, func() error {
		env, err := c.call(ctx, "/api/fs/get", map[string]any{"path": path})
		if err != nil {
			return err
		}
		if env.Code != http.StatusOK {
			return fmt.Errorf("alist get %s: %s", path, env.Message)
		}
		var data alistGetData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("alist get %s: decode: %w", path, err)
		}
		if data.RawURL == "" {
			return fmt.Errorf("alist get %s: no raw url", path)
		}
		rawURL = data.RawURL
		return nil
	})
	if err != nil {
		return nil, err
	}

	var content []byte
	err = c.retry.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("alist download %s: %w", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("alist download %s: status %d", path, resp.StatusCode)
		}
		content, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// RefreshDir forces the server to re-read a directory from its driver
// and drops the local cache entry. A minimal page keeps the forced
// listing cheap.
func (c *AlistClient) RefreshDir(ctx context.Context, path string) error {
	path = pathutil.Normalize(path)
	err := c.retry.do(ctx, func() error {
		if err := c.gate.wait(ctx); err != nil {
			return err
		}
		env, err := c.call(ctx, "/api/fs/list", map[string]any{
			"path":     path,
			"refresh":  true,
			"page":     1,
			"per_page": 1,
		})
		if err != nil {
			return err
		}
		if env.Code != http.StatusOK {
			return fmt.Errorf("alist refresh %s: %s", path, env.Message)
		}
		return nil
	})
	if err == nil {
		c.cache.invalidate(path)
	}
	return err
}

// RefreshDirs refreshes several directories with bounded concurrency.
func (c *AlistClient) RefreshDirs(ctx context.Context, dirs []string) error {
	return refreshDirs(ctx, c, dirs, c.logger)
}

// UploadBatch uploads many small files at once. See uploadBatch.
func (c *AlistClient) UploadBatch(ctx context.Context, files []UploadFile) BatchResult {
	return uploadBatch(ctx, c, files, c.logger)
}
