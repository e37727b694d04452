// Package rowsync keeps a JSON snapshot of the last seen sheet rows so the
// monitor can tell new, edited and untouched rows apart between polls.
package rowsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-drive-agent/internal/models"
)

// State classifies a row against the snapshot
type State int

const (
	Unchanged State = iota
	New
	Updated
)

func (s State) String() string {
	switch s {
	case New:
		return "new"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Entry is the last recorded state of one row
type Entry struct {
	Row         models.JobRow `json:"row"`
	Fingerprint uint64        `json:"fingerprint"`
	Status      string        `json:"status,omitempty"`
	LastSynced  time.Time     `json:"last_synced"`
	LastUpdated *time.Time    `json:"last_updated,omitempty"`
}

// Metadata describes the snapshot as a whole
type Metadata struct {
	TotalSynced       int    `json:"total_synced"`
	LastExcelModified string `json:"last_excel_modified,omitempty"`
}

// Snapshot is the on-disk document
type Snapshot struct {
	LastSync *time.Time        `json:"last_sync"`
	Jobs     map[string]*Entry `json:"jobs"`
	Metadata Metadata          `json:"metadata"`
}

// RowState pairs a row with its classification. NeedsID is set when the
// unique id was generated during Sync and has to be written back to the sheet.
type RowState struct {
	Row      models.JobRow
	State    State
	NeedsID  bool
	Previous *models.JobRow // last recorded row, set for Updated rows
}

// Result is the outcome of a Sync
type Result struct {
	Rows  []RowState
	Stats models.SyncStats
}

// Stats describes the snapshot file
type Stats struct {
	TotalJobs         int        `json:"total_jobs"`
	LastSync          *time.Time `json:"last_sync"`
	LastExcelModified string     `json:"last_excel_modified"`
	CacheFile         string     `json:"cache_file"`
	CacheExists       bool       `json:"cache_exists"`
}

// Cache is a file backed snapshot. It is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	path   string
	snap   Snapshot
	now    func() time.Time
	logger *zap.Logger
}

// Open loads the snapshot at path. A missing or unreadable file yields an empty snapshot.
func Open(path string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{path: path, now: time.Now, logger: logger}
	c.Load()
	return c
}

// PathFor returns the snapshot path of a monitored file inside dir
func PathFor(dir, fileID string) string {
	return filepath.Join(dir, fmt.Sprintf("sheet_%s.json", sanitize(fileID)))
}

// NewUniqueID returns an id of the form JOB-YYYYMMDD-XXXXXXXX
func NewUniqueID(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("JOB-%s-%s", now.Format("20060102"), strings.ToUpper(hex[:8]))
}

// Fingerprint hashes the user editable fields of a row
func Fingerprint(row models.JobRow) uint64 {
	fields := []string{
		row.JobURL,
		row.JobDescription,
		row.AdditionalInstructions,
		boolField(row.GenerateResume),
		boolField(row.GenerateCover),
		row.CompanyName,
	}
	d := xxhash.New()
	for _, f := range fields {
		d.WriteString(strings.TrimSpace(f))
		d.Write([]byte{0x1f})
	}
	return d.Sum64()
}

// Load replaces the in-memory snapshot with the file contents
func (c *Cache) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap = emptySnapshot()
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to read sync snapshot", zap.String("path", c.path), zap.Error(err))
		}
		return
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.logger.Warn("ignoring corrupt sync snapshot", zap.String("path", c.path), zap.Error(err))
		return
	}
	if snap.Jobs == nil {
		snap.Jobs = make(map[string]*Entry)
	}
	c.snap = snap
}

// Save writes the snapshot to disk and stamps last_sync
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.snap.LastSync = &now
	return writeJSON(c.path, c.snap)
}

// Sync classifies rows against the snapshot. Rows without a unique id are
// assigned one and reported as New. The snapshot itself is not modified.
func (c *Cache) Sync(rows []models.JobRow, lastModified string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := Result{Rows: make([]RowState, 0, len(rows))}
	res.Stats.Total = len(rows)
	now := c.now()

	for _, row := range rows {
		rs := RowState{Row: row}
		rs.Row.UniqueID = strings.TrimSpace(row.UniqueID)

		switch entry, ok := c.snap.Jobs[rs.Row.UniqueID]; {
		case rs.Row.UniqueID == "":
			rs.Row.UniqueID = NewUniqueID(now)
			rs.NeedsID = true
			rs.State = New
		case !ok:
			rs.State = New
		case entry.Fingerprint != Fingerprint(rs.Row):
			prev := entry.Row
			rs.State = Updated
			rs.Previous = &prev
		default:
			rs.State = Unchanged
		}

		switch rs.State {
		case New:
			res.Stats.New++
		case Updated:
			res.Stats.Updated++
		default:
			res.Stats.Unchanged++
		}
		res.Rows = append(res.Rows, rs)
	}

	if lastModified != "" {
		c.snap.Metadata.LastExcelModified = lastModified
	}
	return res
}

// Record stores row as the last seen state of its unique id
func (c *Cache) Record(row models.JobRow) {
	if row.UniqueID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &Entry{Row: row, Fingerprint: Fingerprint(row), LastSynced: c.now()}
	if prev, ok := c.snap.Jobs[row.UniqueID]; ok {
		entry.Status = prev.Status
		entry.LastUpdated = prev.LastUpdated
	}
	c.snap.Jobs[row.UniqueID] = entry
	c.snap.Metadata.TotalSynced = len(c.snap.Jobs)
}

// Get returns the recorded entry of a unique id
func (c *Cache) Get(uniqueID string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.snap.Jobs[uniqueID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// All returns every recorded entry ordered by unique id
func (c *Cache) All() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.snap.Jobs))
	for id := range c.snap.Jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, *c.snap.Jobs[id])
	}
	return out
}

// Stats reports snapshot totals
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := os.Stat(c.path)
	return Stats{
		TotalJobs:         len(c.snap.Jobs),
		LastSync:          c.snap.LastSync,
		LastExcelModified: c.snap.Metadata.LastExcelModified,
		CacheFile:         c.path,
		CacheExists:       err == nil,
	}
}

// UpdateStatus sets the processing status of a recorded row. It reports false for unknown ids.
func (c *Cache) UpdateStatus(uniqueID, status string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.snap.Jobs[uniqueID]
	if !ok {
		return false
	}
	now := c.now()
	e.Status = status
	e.LastUpdated = &now
	return true
}

// Clear drops every entry and removes the snapshot file
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap = emptySnapshot()
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove sync snapshot: %w", err)
	}
	return nil
}

// ExportTo writes a copy of the snapshot to path
func (c *Cache) ExportTo(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSON(path, c.snap)
}

func emptySnapshot() Snapshot {
	return Snapshot{Jobs: make(map[string]*Entry)}
}

func writeJSON(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write sync snapshot: %w", err)
	}
	return nil
}

func boolField(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}
