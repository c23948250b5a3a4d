package watch

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

const watchMask = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO

// Watcher watches individual files through inotify watches on their
// directories.
type Watcher struct {
	fd int

	mu    sync.Mutex
	dirs  map[int]string             // watch descriptor -> directory
	wds   map[string]int             // directory -> watch descriptor
	files map[string]map[string]bool // directory -> watched base names

	events    chan Event
	errors    chan error
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a watcher with nothing to watch.
func New() (*Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	w := &Watcher{
		fd:     fd,
		dirs:   make(map[int]string),
		wds:    make(map[string]int),
		files:  make(map[string]map[string]bool),
		events: make(chan Event, 64),
		errors: make(chan error, 8),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.readLoop()
	return w, nil
}

// Events delivers changes to watched files. It is closed by Close.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors delivers read errors and queue overflows. It is closed by Close.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Add starts watching path.
func (w *Watcher) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addLocked(path)
}

// Set replaces the watched files with paths. Directories that no longer hold
// a watched file stop being watched.
func (w *Watcher) Set(paths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	keep := make(map[string]bool)
	for dir := range w.files {
		w.files[dir] = make(map[string]bool)
	}
	for _, p := range paths {
		if err := w.addLocked(p); err != nil {
			return err
		}
		abs, _ := filepath.Abs(p)
		keep[filepath.Dir(abs)] = true
	}
	for dir, wd := range w.wds {
		if keep[dir] {
			continue
		}
		_, _ = unix.InotifyRmWatch(w.fd, uint32(wd))
		delete(w.wds, dir)
		delete(w.dirs, wd)
		delete(w.files, dir)
	}
	return nil
}

func (w *Watcher) addLocked(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dir, name := filepath.Dir(abs), filepath.Base(abs)

	if _, ok := w.wds[dir]; !ok {
		wd, err := unix.InotifyAddWatch(w.fd, dir, watchMask)
		if err != nil {
			return fmt.Errorf("inotify_add_watch on %s: %w", dir, err)
		}
		w.wds[dir] = wd
		w.dirs[wd] = dir
	}
	if w.files[dir] == nil {
		w.files[dir] = make(map[string]bool)
	}
	w.files[dir][name] = true
	return nil
}

// Close stops the watcher and releases the inotify descriptor. It is safe to
// call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.stop)
		<-w.done
	})
	return nil
}

// readLoop polls the inotify descriptor with a timeout so that it notices
// Close without blocking in read(2).
func (w *Watcher) readLoop() {
	defer close(w.done)
	defer close(w.errors)
	defer close(w.events)
	defer unix.Close(w.fd)

	buffer := make([]byte, 64*(unix.SizeofInotifyEvent+unix.NAME_MAX+1))
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		pollDescriptors := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			w.sendError(fmt.Errorf("poll: %w", err))
			return
		}
		if count == 0 {
			continue
		}

		bytesRead, err := unix.Read(w.fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			w.sendError(fmt.Errorf("read inotify: %w", err))
			return
		}
		for _, ev := range w.decode(buffer[:bytesRead]) {
			select {
			case w.events <- ev:
			case <-w.stop:
				return
			}
		}
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	case <-w.stop:
	}
}

// decode turns raw inotify events into Events for watched files.
//
// Inotify event layout (from inotify(7)):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, padded to alignment
//	};
func (w *Watcher) decode(buffer []byte) []Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []Event
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		wd := int(int32(binary.NativeEndian.Uint32(buffer[offset : offset+4])))
		mask := binary.NativeEndian.Uint32(buffer[offset+4 : offset+8])
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}
		name := nullTerminatedString(buffer[offset+unix.SizeofInotifyEvent : offset+eventSize])
		offset += eventSize

		if mask&unix.IN_Q_OVERFLOW != 0 {
			select {
			case w.errors <- fmt.Errorf("inotify queue overflow"):
			default:
			}
			continue
		}
		dir, ok := w.dirs[wd]
		if !ok || name == "" || !w.files[dir][name] {
			continue
		}

		var op Op
		if mask&unix.IN_CLOSE_WRITE != 0 {
			op |= OpWrite
		}
		if mask&unix.IN_MOVED_TO != 0 {
			op |= OpMove
		}
		out = append(out, Event{Path: filepath.Join(dir, name), Op: op})
	}
	return out
}

// nullTerminatedString extracts a string from a null-padded byte slice,
// stopping at the first null byte.
func nullTerminatedString(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}
