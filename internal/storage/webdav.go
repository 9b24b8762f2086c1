package storage

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/strmforge/strmforge/internal/pathutil"
)

const davPrefix = "/dav"

// WebDAVClient talks plain WebDAV rooted under /dav with basic auth.
type WebDAVClient struct {
	base
}

// NewWebDAVClient creates a client.
func NewWebDAVClient(opts Options, logger zerolog.Logger) *WebDAVClient {
	return &WebDAVClient{base: newBase(opts, "webdav", logger)}
}

func (c *WebDAVClient) Kind() Kind      { return KindWebDAV }
func (c *WebDAVClient) BaseURL() string { return c.baseURL }

// DirectURL returns the direct link under /dav. Credentials are not
// embedded; players authenticate separately.
func (c *WebDAVClient) DirectURL(path string) string {
	return c.baseURL + davPrefix + encodeURI(pathutil.Normalize(path))
}

// encodeDavPath escapes a path for the request line, keeping slashes.
func encodeDavPath(p string) string {
	return percentEncode(p, func(b byte) bool {
		return isAlphaNum(b) || b == '-' || b == '_' || b == '.' || b == '~' || b == '/'
	})
}

func (c *WebDAVClient) resourceURL(path string) string {
	return c.baseURL + davPrefix + encodeDavPath(pathutil.Normalize(path))
}

func (c *WebDAVClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resourceURL(path), body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	return req, nil
}

type davMultistatus struct {
	XMLName   xml.Name      `xml:"DAV: multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href     string        `xml:"href"`
	Propstat []davPropstat `xml:"propstat"`
}

type davPropstat struct {
	Status string  `xml:"status"`
	Prop   davProp `xml:"prop"`
}

type davProp struct {
	ResourceType davResourceType `xml:"resourcetype"`
	Length       int64           `xml:"getcontentlength"`
	LastModified string          `xml:"getlastmodified"`
	ContentType  string          `xml:"getcontenttype"`
}

type davResourceType struct {
	Collection *struct{} `xml:"collection"`
}

// List returns the cached listing for path, fetching on a miss.
func (c *WebDAVClient) List(ctx context.Context, path string) ([]FileInfo, error) {
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

// ListUncached issues a Depth:1 PROPFIND and parses the multistatus.
func (c *WebDAVClient) ListUncached(ctx context.Context, path string) ([]FileInfo, error) {
	path = pathutil.Normalize(path)
	var entries []FileInfo
	err := c.retry.do(ctx, func() error {
		if err := c.gate.wait(ctx); err != nil {
			return err
		}
		req, err := c.newRequest(ctx, "PROPFIND", path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Depth", "1")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("webdav propfind %s: %w", path, err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK, http.StatusMultiStatus:
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: propfind %s", ErrAuthFailed, path)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		default:
			return fmt.Errorf("webdav propfind %s: status %d", path, resp.StatusCode)
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("webdav propfind %s: read body: %w", path, err)
		}
		parsed, err := c.parseMultistatus(raw, path)
		if err != nil {
			return err
		}
		entries = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// parseMultistatus converts a PROPFIND response into FileInfo entries,
// skipping the listed directory itself. Hrefs arrive URL-escaped and
// prefixed with /dav; both are stripped.
func (c *WebDAVClient) parseMultistatus(raw []byte, requested string) ([]FileInfo, error) {
	var ms davMultistatus
	if err := xml.Unmarshal(raw, &ms); err != nil {
		return nil, fmt.Errorf("webdav propfind %s: parse: %w", requested, err)
	}

	entries := make([]FileInfo, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		href, err := url.PathUnescape(r.Href)
		if err != nil {
			href = r.Href
		}
		p := hrefToPath(href)
		if p == requested || p == "" {
			continue
		}

		var prop *davProp
		for i := range r.Propstat {
			if strings.Contains(r.Propstat[i].Status, "200") {
				prop = &r.Propstat[i].Prop
				break
			}
		}
		if prop == nil && len(r.Propstat) > 0 {
			prop = &r.Propstat[0].Prop
		}
		if prop == nil {
			continue
		}

		info := FileInfo{
			Path:        p,
			Name:        pathutil.Base(p),
			IsDir:       prop.ResourceType.Collection != nil,
			Size:        prop.Length,
			ContentType: prop.ContentType,
		}
		if t, err := http.ParseTime(prop.LastModified); err == nil {
			info.Modified = t
		}
		entries = append(entries, info)
	}
	return entries, nil
}

// hrefToPath strips any scheme/host and the /dav mount from an href.
func hrefToPath(href string) string {
	if u, err := url.Parse(href); err == nil && u.Path != "" {
		href = u.Path
	}
	href = strings.TrimPrefix(href, davPrefix)
	return pathutil.Normalize(href)
}

// Mkdir issues MKCOL; 405 means the collection already exists.
func (c *WebDAVClient) Mkdir(ctx context.Context, path string) error {
	path = pathutil.Normalize(path)
	err := c.retry.do(ctx, func() error {
		if err := c.gate.wait(ctx); err != nil {
			return err
		}
		req, err := c.newRequest(ctx, "MKCOL", path, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("webdav mkcol %s: %w", path, err)
		}
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusCreated, http.StatusMethodNotAllowed:
			return nil
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: mkcol %s", ErrAuthFailed, path)
		case http.StatusConflict:
			// parent missing: create it and retry through the retrier
			parent := pathutil.Dir(path)
			if parent != "/" && parent != path {
				if mkErr := c.Mkdir(ctx, parent); mkErr != nil {
					return mkErr
				}
			}
			return fmt.Errorf("webdav mkcol %s: parent was missing", path)
		default:
			return fmt.Errorf("webdav mkcol %s: status %d", path, resp.StatusCode)
		}
	})
	if err == nil {
		c.invalidateAround(path)
	}
	return err
}

func (c *WebDAVClient) moveOrCopy(ctx context.Context, method, src, dst string) error {
	src, dst = pathutil.Normalize(src), pathutil.Normalize(dst)
	err := c.retry.do(ctx, func() error {
		if err := c.gate.wait(ctx); err != nil {
			return err
		}
		req, err := c.newRequest(ctx, method, src, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Destination", c.resourceURL(dst))
		req.Header.Set("Overwrite", "T")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("webdav %s %s: %w", strings.ToLower(method), src, err)
		}
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusNoContent:
			return nil
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s %s", ErrAuthFailed, strings.ToLower(method), src)
		default:
			return fmt.Errorf("webdav %s %s -> %s: status %d", strings.ToLower(method), src, dst, resp.StatusCode)
		}
	})
	if err == nil {
		c.invalidateAround(src)
		c.invalidateAround(dst)
	}
	return err
}

// Move relocates or renames a resource via MOVE.
func (c *WebDAVClient) Move(ctx context.Context, src, dst string) error {
	return c.moveOrCopy(ctx, "MOVE", src, dst)
}

// Copy duplicates a resource via COPY.
func (c *WebDAVClient) Copy(ctx context.Context, src, dst string) error {
	return c.moveOrCopy(ctx, "COPY", src, dst)
}

// Delete removes a resource. A missing resource is not an error.
func (c *WebDAVClient) Delete(ctx context.Context, path string) error {
	path = pathutil.Normalize(path)
	err := c.retry.do(ctx, func() error {
		if err := c.gate.wait(ctx); err != nil {
			return err
		}
		req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("webdav delete %s: %w", path, err)
		}
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
			return nil
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: delete %s", ErrAuthFailed, path)
		default:
			return fmt.Errorf("webdav delete %s: status %d", path, resp.StatusCode)
		}
	})
	if err == nil {
		c.invalidateAround(path)
	}
	return err
}

// Exists probes with a Depth:0 PROPFIND.
func (c *WebDAVClient) Exists(ctx context.Context, path string) (bool, error) {
	path = pathutil.Normalize(path)
	if err := c.gate.wait(ctx); err != nil {
		return false, err
	}
	req, err := c.newRequest(ctx, "PROPFIND", path, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Depth", "0")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("webdav propfind %s: %w", path, err)
	}
	resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusMultiStatus:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	case http.StatusUnauthorized:
		return false, fmt.Errorf("%w: propfind %s", ErrAuthFailed, path)
	default:
		return false, fmt.Errorf("webdav propfind %s: status %d", path, resp.StatusCode)
	}
}

// Upload writes data through the rate gate.
func (c *WebDAVClient) Upload(ctx context.Context, path string, data []byte) error {
	if err := c.gate.wait(ctx); err != nil {
		return err
	}
	return c.uploadDirect(ctx, path, data)
}

// uploadDirect PUTs the data without the gate; used by batch uploads.
func (c *WebDAVClient) uploadDirect(ctx context.Context, path string, data []byte) error {
	path = pathutil.Normalize(path)
	err := c.retry.do(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodPut, path, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("webdav put %s: %w", path, err)
		}
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusNoContent:
			return nil
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: put %s", ErrAuthFailed, path)
		default:
			return fmt.Errorf("webdav put %s: status %d", path, resp.StatusCode)
		}
	})
	if err == nil {
		c.invalidateAround(path)
	}
	return err
}

// Download GETs the resource content.
func (c *WebDAVClient) Download(ctx context.Context, path string) ([]byte, error) {
	path = pathutil.Normalize(path)
	if err := c.gate.wait(ctx); err != nil {
		return nil, err
	}
	var content []byte
	err := c.retry.do(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("webdav get %s: %w", path, err)
		}
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: get %s", ErrAuthFailed, path)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		default:
			return fmt.Errorf("webdav get %s: status %d", path, resp.StatusCode)
		}
		content, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// RefreshDir re-reads a directory, replacing the cache entry. Plain
// WebDAV has no driver-side refresh, so a fresh PROPFIND is the best
// available equivalent.
func (c *WebDAVClient) RefreshDir(ctx context.Context, path string) error {
	path = pathutil.Normalize(path)
	c.cache.invalidate(path)
	_, err := c.List(ctx, path)
	return err
}

// RefreshDirs refreshes several directories with bounded concurrency.
func (c *WebDAVClient) RefreshDirs(ctx context.Context, dirs []string) error {
	return refreshDirs(ctx, c, dirs, c.logger)
}

// UploadBatch uploads many small files at once. See uploadBatch.
func (c *WebDAVClient) UploadBatch(ctx context.Context, files []UploadFile) BatchResult {
	return uploadBatch(ctx, c, files, c.logger)
}
