package internal

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// stabilityDelay is how long the watcher waits after a write event
// before treating a frame file as fully written.
const stabilityDelay = 100 * time.Millisecond

// FrameWatcher monitors the captured-frames directory and hands each
// new frame to a single processing function. Frames flow through one
// worker goroutine so gate state is never mutated concurrently.
type FrameWatcher struct {
	watcher   *fsnotify.Watcher
	framesDir string
	process   func(*Frame)
	logger    *Logger

	mu        sync.Mutex
	seen      map[string]time.Time
	lastSweep time.Time

	queue chan string
	done  chan struct{}
}

// NewFrameWatcher creates a watcher over framesDir. Each stable new
// image file is loaded and passed to process, strictly in order.
func NewFrameWatcher(framesDir string, process func(*Frame), logger *Logger) (*FrameWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FrameWatcher{
		watcher:   w,
		framesDir: framesDir,
		process:   process,
		logger:    logger,
		seen:      make(map[string]time.Time),
		lastSweep: time.Now(),
		queue:     make(chan string, 256),
		done:      make(chan struct{}),
	}, nil
}

// Start begins monitoring. It returns once the watcher goroutines are
// running.
func (fw *FrameWatcher) Start() error {
	if err := os.MkdirAll(fw.framesDir, 0755); err != nil {
		return err
	}
	if err := fw.watcher.Add(fw.framesDir); err != nil {
		return err
	}

	fw.logger.Info("Watching for frames in %s", fw.framesDir)

	go fw.handleEvents()
	go fw.worker()
	return nil
}

// Stop shuts the watcher down.
func (fw *FrameWatcher) Stop() {
	close(fw.done)
	fw.watcher.Close()
}

func (fw *FrameWatcher) handleEvents() {
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isImageFile(event.Name) {
				continue
			}
			if fw.alreadySeen(event.Name) {
				continue
			}
			select {
			case fw.queue <- event.Name:
			default:
				fw.logger.Warn("Frame queue full, dropping %s", filepath.Base(event.Name))
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Watcher error: %v", err)
		case <-fw.done:
			return
		}
	}
}

// worker is the single consumer: frame N+1 never starts until frame
// N's gate mutations have completed.
func (fw *FrameWatcher) worker() {
	for {
		select {
		case path := <-fw.queue:
			time.Sleep(stabilityDelay)

			frame, err := LoadFrame(path)
			if err != nil {
				fw.logger.Error("Failed to load frame %s: %v", filepath.Base(path), err)
				continue
			}
			fw.process(frame)
		case <-fw.done:
			return
		}
	}
}

// alreadySeen dedupes the create+write event pairs fsnotify delivers
// for a single file, and periodically evicts old entries.
func (fw *FrameWatcher) alreadySeen(path string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := time.Now()
	if t, ok := fw.seen[path]; ok && now.Sub(t) < 2*time.Second {
		return true
	}
	fw.seen[path] = now

	if now.Sub(fw.lastSweep) > time.Minute {
		for p, t := range fw.seen {
			if now.Sub(t) > time.Minute {
				delete(fw.seen, p)
			}
		}
		fw.lastSweep = now
	}
	return false
}

func isImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp":
		return true
	default:
		return false
	}
}
