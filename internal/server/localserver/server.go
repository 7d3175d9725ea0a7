package localserver

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"sync"
)

// SocketMode is applied to the socket file after it is created.
const SocketMode fs.FileMode = 0o600

// Listener is a Unix socket listener that removes its socket file on Close.
type Listener struct {
	net.Listener
	path string
	once sync.Once
}

// Listen creates the socket at path. A stale socket left by a crashed
// process is replaced; a socket another process still serves is an error,
// as is any non-socket file at path.
func Listen(path string) (*Listener, error) {
	if path == "" {
		return nil, errors.New("localserver: socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("localserver: create socket dir: %w", err)
	}
	if err := removeStale(path); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("localserver: listen %s: %w", path, err)
	}
	if err := os.Chmod(path, SocketMode); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("localserver: chmod %s: %w", path, err)
	}

	// Close removes the file itself.
	if ul, ok := ln.(*net.UnixListener); ok {
		ul.SetUnlinkOnClose(false)
	}
	return &Listener{Listener: ln, path: path}, nil
}

func removeStale(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("localserver: stat %s: %w", path, err)
	}
	if fi.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("localserver: %s exists and is not a socket", path)
	}

	if conn, err := net.Dial("unix", path); err == nil {
		_ = conn.Close()
		return fmt.Errorf("localserver: %s is in use by another process", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("localserver: remove stale socket: %w", err)
	}
	return nil
}

// Path returns the socket path.
func (l *Listener) Path() string {
	return l.path
}

// Close stops listening and removes the socket file.
func (l *Listener) Close() error {
	err := l.Listener.Close()
	l.once.Do(func() {
		if rerr := os.Remove(l.path); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) && err == nil {
			err = rerr
		}
	})
	return err
}
