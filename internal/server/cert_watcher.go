package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumeseo/internal/errors"
)

const defaultDebounceDelay = time.Second

// fileStamp identifies one version of a file on disk
type fileStamp struct {
	modTime time.Time
	size    int64
}

// CertWatcher calls back, debounced, when the certificate or key file
// changes. It watches the parent directories rather than the files so that
// atomic replacements (write to a temp file, rename into place) are seen.
type CertWatcher struct {
	certFile      string
	keyFile       string
	debounceDelay time.Duration
	onChange      func()
	logger        *errors.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	stamps  map[string]fileStamp
	done    chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewCertWatcher creates a watcher for the key pair. A zero debounce uses
// one second.
func NewCertWatcher(certFile, keyFile string, debounce time.Duration, onChange func(), logger *errors.Logger) (*CertWatcher, error) {
	if certFile == "" || keyFile == "" {
		return nil, fmt.Errorf("certificate watcher needs both certFile and keyFile")
	}
	if debounce <= 0 {
		debounce = defaultDebounceDelay
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	return &CertWatcher{
		certFile:      certFile,
		keyFile:       keyFile,
		debounceDelay: debounce,
		onChange:      onChange,
		logger:        logger,
		stamps:        make(map[string]fileStamp),
	}, nil
}

// Start begins watching
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("certificate watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dirs := cw.watchedDirs()
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	for _, file := range cw.GetWatchedFiles() {
		if stamp, ok := statFile(file); ok {
			cw.stamps[file] = stamp
		}
	}

	cw.fsw = fsw
	cw.done = make(chan struct{})
	cw.running = true

	cw.wg.Add(1)
	go cw.loop(fsw, cw.done)

	cw.logger.Info("Certificate file watcher started",
		"files", cw.GetWatchedFiles(),
		"directories", dirs,
		"debounce_delay", cw.debounceDelay)
	return nil
}

// Stop stops watching and waits for the event loop to exit. Stopping a
// watcher that is not running does nothing.
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	if !cw.running {
		cw.mu.Unlock()
		return nil
	}
	cw.running = false
	close(cw.done)
	if cw.timer != nil {
		cw.timer.Stop()
	}
	fsw := cw.fsw
	cw.mu.Unlock()

	err := fsw.Close()
	cw.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}

	cw.logger.Info("Certificate file watcher stopped")
	return nil
}

// IsRunning reports whether the watcher has been started and not stopped
func (cw *CertWatcher) IsRunning() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.running
}

// GetWatchedFiles returns the key pair paths
func (cw *CertWatcher) GetWatchedFiles() []string {
	return []string{cw.certFile, cw.keyFile}
}

func (cw *CertWatcher) watchedDirs() []string {
	var dirs []string
	for _, file := range cw.GetWatchedFiles() {
		dir := filepath.Dir(file)
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func (cw *CertWatcher) loop(fsw *fsnotify.Watcher, done <-chan struct{}) {
	defer cw.wg.Done()

	for {
		select {
		case <-done:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if cw.isRelevant(event) {
				cw.debounce()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			cw.logger.LogError(err, "Certificate file watcher error")
		}
	}
}

// isRelevant reports whether event touches the certificate or key
func (cw *CertWatcher) isRelevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	return slices.ContainsFunc(cw.GetWatchedFiles(), func(file string) bool {
		return filepath.Clean(file) == name
	})
}

// debounce restarts the quiet period; the check runs once events stop
func (cw *CertWatcher) debounce() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return
	}
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.debounceDelay, cw.checkAndNotify)
}

// checkAndNotify calls back when either file differs from the last version
// seen
func (cw *CertWatcher) checkAndNotify() {
	cw.mu.Lock()
	if !cw.running {
		cw.mu.Unlock()
		return
	}
	changed := false
	for _, file := range cw.GetWatchedFiles() {
		stamp, ok := statFile(file)
		if !ok {
			continue
		}
		if prev, seen := cw.stamps[file]; !seen || !prev.equal(stamp) {
			cw.stamps[file] = stamp
			changed = true
		}
	}
	cw.mu.Unlock()

	if changed {
		cw.logger.Info("Certificate files changed, triggering reload")
		cw.onChange()
	}
}

func (s fileStamp) equal(other fileStamp) bool {
	return s.size == other.size && s.modTime.Equal(other.modTime)
}

func statFile(file string) (fileStamp, bool) {
	info, err := os.Stat(file)
	if err != nil {
		return fileStamp{}, false
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size()}, true
}
