// Package pathutil holds helpers for remote storage paths. Remote paths
// always use forward slashes regardless of the host platform.
package pathutil

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Normalize converts all separators to forward slashes and guarantees a
// leading slash.
func Normalize(p string) string {
	p = filepath.ToSlash(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

// Join joins path elements with forward slashes.
func Join(elem ...string) string {
	return Normalize(path.Join(elem...))
}

// Dir returns the parent directory of p.
func Dir(p string) string {
	return Normalize(path.Dir(Normalize(p)))
}

// Base returns the last element of p.
func Base(p string) string {
	return path.Base(Normalize(p))
}

// Ext returns the extension of p including the dot, lower-cased.
func Ext(p string) string {
	return strings.ToLower(path.Ext(p))
}

// Depth counts path segments; "/" has depth 0.
func Depth(p string) int {
	p = Normalize(p)
	if p == "/" {
		return 0
	}
	return strings.Count(p, "/")
}

// AncestorDirs collects the distinct parent directories of the given
// file paths, ordered shallowest first so they can be created in order.
// The root directory is omitted.
func AncestorDirs(paths []string) []string {
	seen := make(map[string]struct{})
	for _, p := range paths {
		dir := Dir(p)
		for dir != "/" {
			seen[dir] = struct{}{}
			dir = Dir(dir)
		}
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := Depth(dirs[i]), Depth(dirs[j])
		if di != dj {
			return di < dj
		}
		return dirs[i] < dirs[j]
	})
	return dirs
}
