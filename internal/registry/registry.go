package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"reel/internal/job"
	"reel/internal/logging"
	"reel/internal/services"
)

// LabelCustom is the choice-list sentinel meaning "use the typed-in video id
// instead of a saved job".
const LabelCustom = "Custom"

const (
	labelSeparator = " | "
	lockFilename   = ".registry.lock"
)

// Entry is one saved job as shown in listings.
type Entry struct {
	Filename string
	ID       string
	Status   string
}

// Label renders the entry in the "<filename> | <id> | <status>" form that
// choice lists and the delete operation round-trip.
func (e Entry) Label() string {
	id := e.ID
	if id == "" {
		id = "unknown"
	}
	status := e.Status
	if status == "" {
		status = "unknown"
	}
	return e.Filename + labelSeparator + id + labelSeparator + status
}

// FilenameFromLabel extracts the filename segment of a label. The Custom
// sentinel and blank labels yield "".
func FilenameFromLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" || label == LabelCustom {
		return ""
	}
	name, _, _ := strings.Cut(label, labelSeparator)
	return strings.TrimSpace(name)
}

// Store is a directory of job snapshot files. Safe for concurrent use; a
// file lock additionally serializes mutations across processes sharing the
// directory.
type Store struct {
	dir    string
	logger *slog.Logger
	lock   *flock.Flock
	now    func() time.Time

	mu        sync.Mutex
	lastStamp time.Time
}

// Option customizes a store.
type Option func(*Store)

// WithClock overrides the time source used for filenames (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore opens (creating if needed) the registry directory.
func NewStore(dir string, logger *slog.Logger, opts ...Option) (*Store, error) {
	const op = "registry"

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "jobs directory required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, op, "create jobs directory", err)
	}
	s := &Store{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "registry"),
		lock:   flock.New(filepath.Join(dir, lockFilename)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the registry directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save persists the record under a fresh timestamped filename and returns
// that filename.
func (s *Store) Save(record job.Record) (string, error) {
	const op = "registry save"

	if record == nil {
		return "", services.Wrap(services.ErrInvalidArgument, op, "record required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return "", services.Wrap(services.ErrIO, op, "acquire registry lock", err)
	}
	defer s.lock.Unlock()

	name := s.nextFilename()
	if err := s.writeFile(op, name, record); err != nil {
		return "", err
	}
	s.logger.Debug("saved job",
		logging.String("file", name),
		logging.String("video_id", record.ID()),
		logging.String("status", string(record.Status())))
	return name, nil
}

// Update rewrites the file the label points to. It never creates a file: a
// blank label, the Custom sentinel, or a missing target all report false.
func (s *Store) Update(label string, record job.Record) (bool, error) {
	const op = "registry update"

	if record == nil {
		return false, services.Wrap(services.ErrInvalidArgument, op, "record required", nil)
	}
	name := registryFilename(FilenameFromLabel(label))
	if name == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return false, services.Wrap(services.ErrIO, op, "acquire registry lock", err)
	}
	defer s.lock.Unlock()

	if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrIO, op, "stat "+name, err)
	}
	if err := s.writeFile(op, name, record); err != nil {
		return false, err
	}
	s.logger.Debug("updated job",
		logging.String("file", name),
		logging.String("status", string(record.Status())))
	return true, nil
}

// List returns the saved jobs in filename order, oldest first. Files that
// fail to parse are skipped rather than breaking the listing.
func (s *Store) List() ([]Entry, error) {
	const op = "registry list"

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrIO, op, "read jobs directory", err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		record, err := s.readFile(name)
		if err != nil {
			s.logger.Debug("skipping unreadable job file",
				logging.String("file", name), logging.Error(err))
			continue
		}
		entries = append(entries, Entry{
			Filename: name,
			ID:       record.ID(),
			Status:   string(record.Status()),
		})
	}
	return entries, nil
}

// Labels returns choice-list labels for every saved job, with the Custom
// sentinel first.
func (s *Store) Labels() ([]string, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(entries)+1)
	labels = append(labels, LabelCustom)
	for _, entry := range entries {
		labels = append(labels, entry.Label())
	}
	return labels, nil
}

// Read loads one saved record by filename.
func (s *Store) Read(filename string) (job.Record, error) {
	const op = "registry read"

	name := registryFilename(filename)
	if name == "" {
		return nil, services.Wrap(services.ErrInvalidArgument, op, "invalid registry filename", nil)
	}
	record, err := s.readFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, op, name, nil)
		}
		return nil, services.Wrap(services.ErrIO, op, "read "+name, err)
	}
	return record, nil
}

// ResolveID maps a label to the video id recorded in its file. The Custom
// sentinel, a blank label, or any trouble reading the file fall back to the
// typed-in id.
func (s *Store) ResolveID(label, customID string) string {
	name := registryFilename(FilenameFromLabel(label))
	if name != "" {
		record, err := s.readFile(name)
		if err != nil {
			s.logger.Debug("label did not resolve, falling back to typed id",
				logging.String("file", name), logging.Error(err))
		} else if id := record.ID(); id != "" {
			return id
		}
	}
	return strings.TrimSpace(customID)
}

// Delete removes the registry file for a job and returns the removed
// filename. A concrete label wins outright and the id is ignored; with a
// blank or Custom label the files are scanned for the first record carrying
// the id. Nothing matching is a quiet no-op.
func (s *Store) Delete(label, videoID string) (string, error) {
	const op = "registry delete"

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return "", services.Wrap(services.ErrIO, op, "acquire registry lock", err)
	}
	defer s.lock.Unlock()

	if trimmed := strings.TrimSpace(label); trimmed != "" && trimmed != LabelCustom {
		name := registryFilename(FilenameFromLabel(trimmed))
		if name == "" {
			return "", nil
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", nil
			}
			return "", services.Wrap(services.ErrIO, op, "remove "+name, err)
		}
		s.logger.Debug("deleted job", logging.String("file", name))
		return name, nil
	}

	id := strings.TrimSpace(videoID)
	if id == "" {
		return "", nil
	}
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", services.Wrap(services.ErrIO, op, "read jobs directory", err)
	}
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		record, err := s.readFile(name)
		if err != nil {
			continue
		}
		if record.ID() != id {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return "", services.Wrap(services.ErrIO, op, "remove "+name, err)
		}
		s.logger.Debug("deleted job",
			logging.String("file", name), logging.String("video_id", id))
		return name, nil
	}
	return "", nil
}

func (s *Store) readFile(name string) (job.Record, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	return job.Decode(data)
}

func (s *Store) writeFile(op, name string, record job.Record) error {
	data, err := job.Encode(record)
	if err != nil {
		return services.Wrap(services.ErrIO, op, "encode "+name, err)
	}
	path := filepath.Join(s.dir, name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return services.Wrap(services.ErrIO, op, "write "+name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrIO, op, "rename "+name, err)
	}
	return nil
}

// nextFilename picks the next free timestamp name. Saves landing in the
// same microsecond, or a clock that stepped backwards, bump forward one
// microsecond at a time so names keep sorting in save order.
func (s *Store) nextFilename() string {
	stamp := s.now().Truncate(time.Microsecond)
	if !stamp.After(s.lastStamp) {
		stamp = s.lastStamp.Add(time.Microsecond)
	}
	for {
		name := formatStamp(stamp)
		if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
			s.lastStamp = stamp
			return name
		}
		stamp = stamp.Add(time.Microsecond)
	}
}

func formatStamp(t time.Time) string {
	return fmt.Sprintf("%s_%06d.json", t.Format("20060102_150405"), t.Nanosecond()/1000)
}

// registryFilename validates a name taken from a label. Labels come back
// from UIs and API calls, so nothing resembling a path escapes the registry
// directory.
func registryFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".json") {
		return ""
	}
	return name
}
