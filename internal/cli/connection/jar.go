package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileJar is an http.CookieJar for a single server whose cookies are
// persisted to a JSON file. Cookies are not partitioned by host.
type FileJar struct {
	path string

	mu      sync.Mutex
	cookies map[string]storedCookie
	dirty   bool
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitzero"`
}

// LoadFileJar reads the jar at path. A missing file yields an empty jar,
// and an empty path yields a jar that is never saved.
func LoadFileJar(path string) (*FileJar, error) {
	j := &FileJar{path: path, cookies: make(map[string]storedCookie)}
	if path == "" {
		return j, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse cookie file %s: %w", path, err)
	}
	now := time.Now()
	for _, c := range stored {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			j.dirty = true
			continue
		}
		j.cookies[c.Name] = c
	}
	return j, nil
}

// SetCookies implements http.CookieJar.
func (j *FileJar) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	for _, c := range cookies {
		switch {
		case c.MaxAge < 0, c.Value == "", !c.Expires.IsZero() && c.Expires.Before(now):
			delete(j.cookies, c.Name)
		default:
			sc := storedCookie{Name: c.Name, Value: c.Value}
			if c.MaxAge > 0 {
				sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
			} else if !c.Expires.IsZero() {
				sc.Expires = c.Expires
			}
			j.cookies[c.Name] = sc
		}
		j.dirty = true
	}
}

// Cookies implements http.CookieJar.
func (j *FileJar) Cookies(_ *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	out := make([]*http.Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// Clear drops every cookie.
func (j *FileJar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.cookies) > 0 {
		j.cookies = make(map[string]storedCookie)
		j.dirty = true
	}
}

// Save writes the jar back if it changed. The file is created with mode
// 0600 since it carries a session credential.
func (j *FileJar) Save() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.path == "" || !j.dirty {
		return nil
	}

	stored := make([]storedCookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		stored = append(stored, c)
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	j.dirty = false
	return nil
}

var _ http.CookieJar = (*FileJar)(nil)
