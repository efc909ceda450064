package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

// DefaultCacheLimit is the number of recent sessions kept in memory.
const DefaultCacheLimit = 500

// ErrStoreClosed is reported (via the logger) when Append is called after Close.
var ErrStoreClosed = errors.New("session store closed")

// CacheHandler receives a snapshot of the cached sessions, oldest first.
type CacheHandler func(sessions []Session)

// Store is the append-only session log plus a bounded in-memory cache of the
// most recent sessions. All disk I/O happens on a single background
// goroutine; the cache only changes after that goroutine has finished a write
// attempt, so observers see sessions in append order.
type Store struct {
	fs      afero.Fs
	path    string
	limit   int
	logger  *slog.Logger
	metrics *storeMetrics

	mu        sync.Mutex // guards cache, loaded, primary, observers
	cache     []Session
	loaded    bool
	primary   CacheHandler
	observers []observer
	nextObs   int

	qmu     sync.Mutex
	cond    *sync.Cond
	queue   []storeJob
	pending int
	started bool
	closed  bool
	done    chan struct{}
}

type observer struct {
	id int
	fn CacheHandler
}

type storeJob struct {
	load    bool
	session *Session
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCacheLimit bounds the in-memory cache. Values below 1 are ignored.
func WithCacheLimit(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the logger used for I/O and decode failures.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics registers store metrics on reg.
func WithMetrics(reg *prometheus.Registry) StoreOption {
	return func(s *Store) {
		s.metrics = newStoreMetrics(reg)
	}
}

// NewStore returns a Store backed by the log file at path on fs. Call Open
// to start the background writer and load the existing log.
func NewStore(fs afero.Fs, path string, opts ...StoreOption) *Store {
	s := &Store{
		fs:     fs,
		path:   path,
		limit:  DefaultCacheLimit,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.qmu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultLogPath returns $XDG_DATA_HOME/focustrail/sessions.jsonl, falling
// back to ~/.local/share/focustrail/sessions.jsonl.
func DefaultLogPath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", fmt.Errorf("resolving data directory: %w", err)
	}
	return filepath.Join(dir, "sessions.jsonl"), nil
}

// dataDir returns the focustrail-specific XDG data directory.
func dataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "focustrail"), nil
}

// Path returns the log file location.
func (s *Store) Path() string { return s.path }

// Open starts the background writer. Its first job is loading the tail of
// the existing log into the cache. Calling Open twice is a no-op.
func (s *Store) Open() {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	s.queue = append([]storeJob{{load: true}}, s.queue...)
	s.pending++
	go s.run()
	s.cond.Broadcast()
}

// Append queues a finished session for writing. It never waits for disk I/O.
func (s *Store) Append(sess *Session) {
	if sess == nil {
		return
	}
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if s.closed {
		s.logger.Warn("dropping session append", "session_id", sess.ID, "error", ErrStoreClosed)
		return
	}
	s.queue = append(s.queue, storeJob{session: sess.Clone()})
	s.pending++
	s.cond.Broadcast()
}

// Flush blocks until every queued job, including the startup load, has
// completed. It returns immediately when the store was never opened.
func (s *Store) Flush() {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if !s.started {
		return
	}
	for s.pending > 0 {
		s.cond.Wait()
	}
}

// Close flushes pending writes and stops the background writer.
func (s *Store) Close() error {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	s.cond.Broadcast()
	s.qmu.Unlock()

	if started {
		<-s.done
	}
	return nil
}

func (s *Store) run() {
	defer close(s.done)
	for {
		s.qmu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.qmu.Unlock()
			return
		}
		job := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		if job.load {
			s.load()
		} else {
			s.write(job.session)
		}

		s.qmu.Lock()
		s.pending--
		if s.pending == 0 {
			s.cond.Broadcast()
		}
		s.qmu.Unlock()
	}
}

// write appends one line to the log and then updates the cache, whether or
// not the write succeeded.
func (s *Store) write(sess *Session) {
	if err := s.appendLine(sess); err != nil {
		s.logger.Error("failed to persist session", "session_id", sess.ID, "path", s.path, "error", err)
		s.metrics.incWriteFailure()
	} else {
		s.metrics.incAppend()
	}

	s.mu.Lock()
	s.cache = append(s.cache, *sess)
	if over := len(s.cache) - s.limit; over > 0 {
		s.cache = append([]Session(nil), s.cache[over:]...)
	}
	s.metrics.setCacheSize(len(s.cache))
	s.mu.Unlock()

	s.notify()
}

func (s *Store) appendLine(sess *Session) error {
	data, err := MarshalLine(sess)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	f, err := s.fs.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening session log: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("writing session log: %w", err)
	}
	return f.Close()
}

// load seeds the cache with the last limit decodable lines of the log.
func (s *Store) load() {
	lines, err := s.tail(s.limit)
	if err != nil {
		s.logger.Error("failed to read session log", "path", s.path, "error", err)
	}

	loaded := make([]Session, 0, len(lines))
	for _, line := range lines {
		sess, err := UnmarshalLine([]byte(line))
		if err != nil {
			s.metrics.incSkipped()
			s.logger.Debug("skipping undecodable session line", "path", s.path, "error", err)
			continue
		}
		loaded = append(loaded, *sess)
	}

	s.mu.Lock()
	s.cache = loaded
	s.loaded = true
	s.metrics.setCacheSize(len(s.cache))
	s.mu.Unlock()

	s.notify()
}

// tail returns up to n non-empty lines from the end of the log.
func (s *Store) tail(n int) ([]string, error) {
	f, err := s.fs.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	ring := make([]string, n)
	count := 0
	err = scanLines(f, func(line string) {
		ring[count%n] = line
		count++
	})
	if count <= n {
		return ring[:count], err
	}
	start := count % n
	return append(ring[start:], ring[:start]...), err
}

// ReadAll decodes every readable session in the log, oldest first. A missing
// log yields no sessions and no error.
func (s *Store) ReadAll() ([]Session, error) {
	f, err := s.fs.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}
	defer f.Close()

	var out []Session
	err = scanLines(f, func(line string) {
		sess, err := UnmarshalLine([]byte(line))
		if err != nil {
			return
		}
		out = append(out, *sess)
	})
	return out, err
}

func scanLines(r io.Reader, fn func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fn(line)
	}
	return scanner.Err()
}

// Sessions returns a snapshot of the cache, oldest first.
func (s *Store) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.cache)
}

// SessionsForToday returns cached sessions that started on or after local
// midnight of now, in now's location. Only the bounded cache is consulted.
func (s *Store) SessionsForToday(now time.Time) []Session {
	return FilterSince(s.Sessions(), StartOfDay(now))
}

// FilterSince keeps the sessions whose StartDate is not before since.
func FilterSince(sessions []Session, since time.Time) []Session {
	out := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		if !sess.StartDate.Before(since) {
			out = append(out, sess)
		}
	}
	return out
}

// OnCacheUpdate installs the primary cache handler, replacing any previous
// one. h is called again after every append or load. Once the log tail has
// been loaded h is also called immediately with the current cache; before
// that its first call is the load itself, so h never sees the unseeded cache.
// Use Subscribe for additional observers.
func (s *Store) OnCacheUpdate(h CacheHandler) {
	s.mu.Lock()
	s.primary = h
	ready := s.loaded
	snapshot := cloneAll(s.cache)
	s.mu.Unlock()
	if h != nil && ready {
		h(snapshot)
	}
}

// Subscribe adds an observer that is called after every mutation, after the
// primary handler and in subscription order. Like OnCacheUpdate it is also
// called immediately once the log tail has been loaded. The returned func
// removes it.
func (s *Store) Subscribe(h CacheHandler) (unsubscribe func()) {
	s.mu.Lock()
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, observer{id: id, fn: h})
	ready := s.loaded
	snapshot := cloneAll(s.cache)
	s.mu.Unlock()

	if ready {
		h(snapshot)
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	handlers := make([]CacheHandler, 0, len(s.observers)+1)
	if s.primary != nil {
		handlers = append(handlers, s.primary)
	}
	for _, o := range s.observers {
		handlers = append(handlers, o.fn)
	}
	snapshot := s.cache
	s.mu.Unlock()

	for _, h := range handlers {
		h(cloneAll(snapshot))
	}
}

func cloneAll(in []Session) []Session {
	out := make([]Session, len(in))
	for i := range in {
		out[i] = *in[i].Clone()
	}
	return out
}
