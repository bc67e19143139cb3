// Package store persists user records as a single JSON snapshot on
// disk, fronted by a bounded cache of decoded records. The snapshot is
// loaded once at startup; all reads and writes go through the cache,
// and dirty records are flushed back atomically.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"dailyCheckAPI/internal/metrics"
	"dailyCheckAPI/internal/user"
)

const snapshotFile = "users.json"

type Config struct {
	DataDir         string
	BackupDir       string
	CacheCapacity   int
	FlushInterval   time.Duration
	MaxBackups      int
	CompressBackups bool
}

// Store owns the snapshot file. mu guards the raw payloads, the cache
// and the degraded flag; flushMu serializes snapshot writes so two
// flushes can never interleave on disk.
type Store struct {
	mu       sync.Mutex
	flushMu  sync.Mutex
	path     string
	raw      map[int64]json.RawMessage
	cache    *lruCache
	capacity int
	backups  *BackupManager
	// encode renders the snapshot document. Tests swap it to fault the
	// write path.
	encode func(map[int64]json.RawMessage) ([]byte, error)

	degraded bool
	// deleted forces the next flush even when no cached record is
	// dirty, so removals reach disk.
	deleted bool

	lastFlush    time.Time
	lastFlushErr error

	flushCh chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Open loads the snapshot and starts the periodic flusher. A corrupted
// snapshot is recovered from the newest readable backup; when no
// backup works the store comes up empty and degraded, serving reads
// but refusing writes.
func Open(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	backups, err := NewBackupManager(cfg.BackupDir, cfg.MaxBackups, cfg.CompressBackups)
	if err != nil {
		return nil, err
	}
	if cfg.CacheCapacity < 1 {
		cfg.CacheCapacity = 100
	}

	s := &Store{
		path:     filepath.Join(cfg.DataDir, snapshotFile),
		raw:      make(map[int64]json.RawMessage),
		cache:    newLRUCache(),
		capacity: cfg.CacheCapacity,
		backups:  backups,
		encode:   encodeSnapshot,
		flushCh:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	go s.run(cfg.FlushInterval)
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		log.Printf("store: no snapshot at %s, starting empty", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	version, users, err := decodeSnapshot(data)
	if err == nil {
		return s.adopt(version, users)
	}

	log.Printf("store: snapshot corrupted: %v", err)
	names, listErr := s.backups.List()
	if listErr != nil {
		log.Printf("store: cannot list backups: %v", listErr)
	}
	for _, name := range names {
		backupData, readErr := s.backups.Read(name)
		if readErr != nil {
			log.Printf("store: backup %s unreadable: %v", name, readErr)
			continue
		}
		version, users, decErr := decodeSnapshot(backupData)
		if decErr != nil {
			log.Printf("store: backup %s corrupted: %v", name, decErr)
			continue
		}
		log.Printf("store: recovered %d users from backup %s", len(users), name)
		// Rewrite the live snapshot on the next flush so the corrupt
		// file does not survive a clean shutdown.
		s.deleted = true
		return s.adopt(version, users)
	}

	log.Printf("store: no usable backup, entering degraded mode")
	s.degraded = true
	return nil
}

func (s *Store) adopt(version string, users map[int64]json.RawMessage) error {
	if version != SchemaVersion {
		log.Printf("store: migrating snapshot from %s to %s", version, SchemaVersion)
		backup := func() error {
			data, err := encodeVersioned(version, users)
			if err != nil {
				return err
			}
			_, err = s.backups.Create(data, time.Now())
			return err
		}
		if err := backup(); err != nil {
			return fmt.Errorf("pre-migration backup: %w", err)
		}
		migrated, err := migrate(version, users)
		if err != nil {
			return err
		}
		if migrated != SchemaVersion {
			return fmt.Errorf("migration stopped at %s", migrated)
		}
		s.deleted = true // force a flush so the upgrade reaches disk
	}
	s.raw = users
	log.Printf("store: loaded %d users", len(users))
	return nil
}

// encodeVersioned writes a snapshot with an explicit version tag,
// used for the pre-migration backup of the old format.
func encodeVersioned(version string, users map[int64]json.RawMessage) ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(users)+1)
	v, err := json.Marshal(version)
	if err != nil {
		return nil, err
	}
	doc[versionKey] = v
	for id, raw := range users {
		doc[fmt.Sprintf("%d", id)] = raw
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Get returns the decoded record for the user id, loading and caching
// it on first access. The returned pointer is shared; callers mutate
// it under the service layer's write lock and then call MarkDirty.
func (s *Store) Get(id int64) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.cache.get(id); ok {
		return entry.user, nil
	}
	raw, ok := s.raw[id]
	if !ok {
		return nil, ErrNotFound
	}
	var u user.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decoding user %d: %w", id, err)
	}
	u.Normalize()
	s.cache.put(id, &u, nil)
	s.ensureCapacityLocked(id)
	s.updateGaugesLocked()
	return &u, nil
}

// Has reports whether a record exists without decoding it.
func (s *Store) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache.peek(id); ok {
		return true
	}
	_, ok := s.raw[id]
	return ok
}

// Put inserts or replaces a record and marks it dirty. The record is
// encoded here, while the caller still owns it, so later flushes work
// from a stable snapshot of its state.
func (s *Store) Put(u *user.User) error {
	pending, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user %d: %w", u.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return ErrDegraded
	}
	s.cache.put(u.ID, u, pending)
	s.ensureCapacityLocked(u.ID)
	s.updateGaugesLocked()
	return nil
}

// MarkDirty flags a cached record as changed and captures its current
// encoding. The record must have been obtained through Get or Put
// first, and the caller must still hold whatever lock it mutated the
// record under.
func (s *Store) MarkDirty(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return ErrDegraded
	}
	entry, ok := s.cache.peek(id)
	if !ok {
		return fmt.Errorf("mark dirty user %d: %w", id, ErrNotFound)
	}
	pending, err := json.Marshal(entry.user)
	if err != nil {
		return fmt.Errorf("encoding user %d: %w", id, err)
	}
	s.cache.markDirty(id, pending)
	s.updateGaugesLocked()
	return nil
}

// Delete removes a record. The removal reaches disk on the next flush.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return ErrDegraded
	}
	_, inRaw := s.raw[id]
	_, inCache := s.cache.peek(id)
	if !inRaw && !inCache {
		return ErrNotFound
	}
	s.cache.remove(id)
	delete(s.raw, id)
	s.deleted = true
	s.updateGaugesLocked()
	return nil
}

// IDs returns every stored user id in ascending order.
func (s *Store) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]bool, len(s.raw))
	for id := range s.raw {
		seen[id] = true
	}
	for id := range s.cache.entries {
		seen[id] = true
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Search returns users whose username or first name contains the
// query, case insensitive. Every result is decoded fresh from the
// stored bytes, so the scan neither churns the LRU order nor shares
// live records with the caller.
func (s *Store) Search(query string) []*user.User {
	query = strings.ToLower(query)
	ids := s.IDs()

	var out []*user.User
	for _, id := range ids {
		s.mu.Lock()
		raw, ok := s.raw[id]
		if entry, cached := s.cache.peek(id); cached && entry.pending != nil {
			raw, ok = entry.pending, true
		}
		s.mu.Unlock()
		if !ok {
			continue
		}
		var decoded user.User
		if err := json.Unmarshal(raw, &decoded); err != nil {
			continue
		}
		decoded.Normalize()
		u := &decoded
		if strings.Contains(strings.ToLower(u.Username), query) ||
			strings.Contains(strings.ToLower(u.FirstName), query) {
			out = append(out, u)
		}
	}
	return out
}

// ensureCapacityLocked evicts clean LRU entries until the cache fits.
// keep names an entry that must survive, so inserting a record can
// never evict that same record; pass 0 when no entry needs protecting.
// When no candidate is evictable nothing is dropped; the cache runs
// over capacity until a flush cleans records.
func (s *Store) ensureCapacityLocked(keep int64) {
	for s.cache.len() > s.capacity {
		if _, ok := s.cache.evictOldestClean(keep); !ok {
			log.Printf("store: cache over capacity (%d/%d) with all records dirty, flush needed",
				s.cache.len(), s.capacity)
			metrics.CachePressureWarnings.Inc()
			s.requestFlush()
			return
		}
		metrics.CacheEvictions.Inc()
	}
}

func (s *Store) updateGaugesLocked() {
	metrics.CachedRecords.Set(float64(s.cache.len()))
	metrics.DirtyRecords.Set(float64(s.cache.dirtyCount()))
}

// RequestFlush schedules an asynchronous flush. Requests arriving
// while one is queued coalesce into a single run.
func (s *Store) RequestFlush() {
	s.requestFlush()
}

func (s *Store) requestFlush() {
	select {
	case s.flushCh <- struct{}{}:
	default:
	}
}

// FlushDirty writes the snapshot if any record is dirty or deleted,
// returning how many records were flushed. The write is atomic: a temp
// file is written, re-parsed to verify it, then renamed over the live
// snapshot. On any failure dirty flags are kept so no change is
// silently dropped.
func (s *Store) FlushDirty() (int, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.degraded {
		s.mu.Unlock()
		return 0, ErrDegraded
	}
	dirty := s.cache.dirtyEntries()
	if len(dirty) == 0 && !s.deleted {
		s.mu.Unlock()
		return 0, nil
	}

	// Each dirty entry carries the bytes captured when it was marked
	// dirty, so the flush never reads the live structs.
	type flushed struct {
		id  int64
		gen uint64
	}
	var written []flushed
	for _, entry := range dirty {
		s.raw[entry.id] = entry.pending
		written = append(written, flushed{id: entry.id, gen: entry.gen})
	}
	doc := make(map[int64]json.RawMessage, len(s.raw))
	for id, raw := range s.raw {
		doc[id] = raw
	}
	s.mu.Unlock()

	start := time.Now()
	err := s.writeSnapshot(doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastFlushErr = err
		metrics.FlushFailures.Inc()
		log.Printf("store: flush failed, keeping records dirty: %v", err)
		return 0, err
	}
	for _, w := range written {
		if entry, ok := s.cache.peek(w.id); ok && entry.gen == w.gen {
			entry.dirty = false
			entry.pending = nil
		}
	}
	s.deleted = false
	s.lastFlush = time.Now()
	s.lastFlushErr = nil
	metrics.Flushes.Inc()
	metrics.FlushDuration.Observe(time.Since(start).Seconds())
	s.updateGaugesLocked()
	s.ensureCapacityLocked(0)
	return len(written), nil
}

func (s *Store) writeSnapshot(doc map[int64]json.RawMessage) error {
	data, err := s.encode(doc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), snapshotFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp snapshot: %w", err)
	}

	// Verify the bytes on disk parse back before replacing the live
	// file. A snapshot that cannot be read is worse than a late one.
	onDisk, err := os.ReadFile(tmpName)
	if err != nil {
		return fmt.Errorf("verifying temp snapshot: %w", err)
	}
	if _, _, err := decodeSnapshot(onDisk); err != nil {
		return fmt.Errorf("verifying temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// RestoreBackup replaces the live dataset with the named backup's
// contents, migrating it if it carries an older schema version. The
// cache is rebuilt empty and the restored snapshot is written out.
// Restoring also clears a degraded state.
func (s *Store) RestoreBackup(name string) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	data, err := s.backups.Read(name)
	if err != nil {
		return err
	}
	version, users, err := decodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("backup %s: %w", name, err)
	}
	if version != SchemaVersion {
		if version, err = migrate(version, users); err != nil {
			return fmt.Errorf("backup %s: %w", name, err)
		}
		if version != SchemaVersion {
			return fmt.Errorf("backup %s: migration stopped at %s", name, version)
		}
	}

	doc := make(map[int64]json.RawMessage, len(users))
	for id, raw := range users {
		doc[id] = raw
	}
	if err := s.writeSnapshot(doc); err != nil {
		return fmt.Errorf("restoring backup %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = users
	s.cache = newLRUCache()
	s.degraded = false
	s.deleted = false
	s.updateGaugesLocked()
	log.Printf("store: restored %d users from backup %s", len(users), name)
	return nil
}

// Backup flushes pending changes and writes a backup of the snapshot.
func (s *Store) Backup() (string, error) {
	if _, err := s.FlushDirty(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		doc := make(map[int64]json.RawMessage, len(s.raw))
		for id, raw := range s.raw {
			doc[id] = raw
		}
		s.mu.Unlock()
		data, err = encodeSnapshot(doc)
	}
	if err != nil {
		return "", fmt.Errorf("reading snapshot for backup: %w", err)
	}
	return s.backups.Create(data, time.Now())
}

// Backups lists available backups newest first.
func (s *Store) Backups() ([]string, error) {
	return s.backups.List()
}

func (s *Store) run(interval time.Duration) {
	defer close(s.doneCh)
	var ticker *time.Ticker
	var tick <-chan time.Time
	if interval > 0 {
		ticker = time.NewTicker(interval)
		tick = ticker.C
		defer ticker.Stop()
	}
	for {
		select {
		case <-s.stopCh:
			return
		case <-tick:
		case <-s.flushCh:
		}
		if _, err := s.FlushDirty(); err != nil && err != ErrDegraded {
			log.Printf("store: periodic flush: %v", err)
		}
	}
}

// Stats describes the store's runtime state, exposed via the health
// and admin endpoints.
type Stats struct {
	Users         int       `json:"users"`
	Cached        int       `json:"cached"`
	Dirty         int       `json:"dirty"`
	Capacity      int       `json:"capacity"`
	Degraded      bool      `json:"degraded"`
	SchemaVersion string    `json:"schema_version"`
	LastFlush     time.Time `json:"last_flush,omitempty"`
	LastFlushErr  string    `json:"last_flush_error,omitempty"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]bool, len(s.raw))
	for id := range s.raw {
		seen[id] = true
	}
	for id := range s.cache.entries {
		seen[id] = true
	}
	st := Stats{
		Users:         len(seen),
		Cached:        s.cache.len(),
		Dirty:         s.cache.dirtyCount(),
		Capacity:      s.capacity,
		Degraded:      s.degraded,
		SchemaVersion: SchemaVersion,
		LastFlush:     s.lastFlush,
	}
	if s.lastFlushErr != nil {
		st.LastFlushErr = s.lastFlushErr.Error()
	}
	return st
}

// Degraded reports whether the store is refusing writes.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Close stops the flusher, flushes outstanding changes and writes a
// shutdown backup.
func (s *Store) Close() error {
	close(s.stopCh)
	<-s.doneCh

	if s.Degraded() {
		return nil
	}
	if _, err := s.FlushDirty(); err != nil {
		return err
	}
	if _, err := s.Backup(); err != nil {
		return fmt.Errorf("shutdown backup: %w", err)
	}
	return nil
}
