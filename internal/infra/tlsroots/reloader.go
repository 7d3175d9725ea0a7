package tlsroots

import (
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/attrmesh/internal/telemetry/logger"
)

// Reloader serves a key pair and reloads it when either file changes.
type Reloader struct {
	certFile string
	keyFile  string
	debounce time.Duration
	logger   logger.Logger

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithLogger sets the reloader's logger.
func WithLogger(log logger.Logger) ReloaderOption {
	return func(r *Reloader) {
		r.logger = log
	}
}

// WithDebounce sets how long to wait after a change before reloading.
// Editors and cert managers usually touch both files in quick succession.
func WithDebounce(d time.Duration) ReloaderOption {
	return func(r *Reloader) {
		r.debounce = d
	}
}

// NewReloader loads the key pair and starts watching the directories that
// hold it. Watching directories rather than files survives atomic renames.
func NewReloader(certFile, keyFile string, opts ...ReloaderOption) (*Reloader, error) {
	r := &Reloader{
		certFile: certFile,
		keyFile:  keyFile,
		debounce: 200 * time.Millisecond,
		logger:   logger.Nop(),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.load(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	for _, dir := range uniqueDirs(certFile, keyFile) {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}
	r.watcher = w

	go r.run()
	return r, nil
}

func uniqueDirs(paths ...string) []string {
	var dirs []string
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		d := filepath.Dir(p)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func (r *Reloader) load() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}
	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()
	return nil
}

func (r *Reloader) run() {
	defer close(r.stopped)

	names := map[string]bool{
		filepath.Clean(r.certFile): true,
		filepath.Clean(r.keyFile):  true,
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !names[filepath.Clean(ev.Name)] || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := r.load(); err != nil {
				// Keep serving the previous pair; a half-written rotation
				// settles on a later event.
				r.logger.Warn("certificate reload failed", "cert_file", r.certFile, "error", err)
				continue
			}
			r.logger.Info("certificate reloaded", "cert_file", r.certFile)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("certificate watcher error", "error", err)

		case <-r.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// GetCertificate returns the current key pair. It fits tls.Config.GetCertificate.
func (r *Reloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// ServerConfig returns a server TLS config backed by the reloader.
func (r *Reloader) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: r.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

// Stop ends watching. It is safe to call more than once.
func (r *Reloader) Stop() error {
	var err error
	r.stopOnce.Do(func() {
		close(r.done)
		<-r.stopped
		err = r.watcher.Close()
	})
	return err
}
