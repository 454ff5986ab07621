package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"inspect-mcp/internal/model"
	"inspect-mcp/internal/store"
)

const (
	equipmentFile = "equipment"
	reportFile    = "reports"
	abnormalFile  = "abnormal"
	settingsFile  = "settings"
)

// Store keeps documents in memory and mirrors each collection to a JSONL file.
// An empty dir keeps everything in memory only.
type Store struct {
	mu       sync.RWMutex
	dir      string
	defaults model.LightSettings

	collections map[string]map[string]store.Document
}

// New creates an empty store rooted at dir.
func New(dir string, defaults model.LightSettings) *Store {
	return &Store{
		dir:      dir,
		defaults: defaults,
		collections: map[string]map[string]store.Document{
			equipmentFile: {},
			reportFile:    {},
			abnormalFile:  {},
			settingsFile:  {},
		},
	}
}

// Open creates a store and loads any existing collection files from dir.
func Open(dir string, defaults model.LightSettings) (*Store, error) {
	s := New(dir, defaults)
	if dir == "" {
		return s, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	for name := range s.collections {
		if err := s.load(name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load(name string) error {
	path := filepath.Join(s.dir, name+".jsonl")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer file.Close()

	docs := s.collections[name]
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var doc store.Document
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			log.Warn().Err(err).Str("collection", name).Msg("Skipping invalid JSON line in store")
			continue
		}
		key := fmt.Sprintf("%v", doc["id"])
		if name == settingsFile {
			key = fmt.Sprintf("%v", doc["scope"])
		}
		docs[key] = doc
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading %s: %w", name, err)
	}

	log.Debug().Str("collection", name).Int("count", len(docs)).Msg("Loaded documents from store")
	return nil
}

// putLocked writes doc under key into a copy of the named collection and
// swaps the copy in only once it is on disk. Stored documents are never
// mutated in place, so readers may decode them after releasing mu.
// Callers hold mu for writing.
func (s *Store) putLocked(name, key string, doc store.Document) error {
	current := s.collections[name]
	next := make(map[string]store.Document, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[key] = doc

	if err := s.persist(name, next); err != nil {
		return err
	}
	s.collections[name] = next
	return nil
}

// persist rewrites one collection file atomically.
func (s *Store) persist(name string, docs map[string]store.Document) error {
	if s.dir == "" {
		return nil
	}

	path := filepath.Join(s.dir, name+".jsonl")
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}

	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, k := range keys {
		if err := encoder.Encode(docs[k]); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode document: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename store file: %w", err)
	}
	return nil
}

// ListEquipment returns equipment matching f, ordered by building then name.
func (s *Store) ListEquipment(ctx context.Context, f store.Filter) ([]model.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Equipment
	for id, doc := range s.collections[equipmentFile] {
		e, err := store.DecodeEquipment(doc)
		if err != nil {
			log.Warn().Err(err).Str("id", id).Msg("Skipping malformed equipment document")
			continue
		}
		if f.Match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BuildingName != out[j].BuildingName {
			return out[i].BuildingName < out[j].BuildingName
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetEquipment(ctx context.Context, id string) (model.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[equipmentFile][id]
	if !ok {
		return model.Equipment{}, store.ErrNotFound
	}
	return store.DecodeEquipment(doc)
}

func (s *Store) FindEquipmentByBarcode(ctx context.Context, barcode string) (model.Equipment, error) {
	if barcode == "" {
		return model.Equipment{}, store.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.collections[equipmentFile] {
		if fmt.Sprintf("%v", doc["barcode"]) == barcode {
			return store.DecodeEquipment(doc)
		}
	}
	return model.Equipment{}, store.ErrNotFound
}

func (s *Store) SaveEquipment(ctx context.Context, e model.Equipment) error {
	if err := store.Validate(e); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(equipmentFile, e.ID, store.EncodeEquipment(e))
}

func (s *Store) UpdateLastInspected(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[equipmentFile][id]
	if !ok {
		return store.ErrNotFound
	}
	updated := make(store.Document, len(doc)+1)
	for k, v := range doc {
		updated[k] = v
	}
	updated["lastInspectedDate"] = at.UnixMilli()
	return s.putLocked(equipmentFile, id, updated)
}

func (s *Store) FindReports(ctx context.Context, building string, from, to time.Time) ([]model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Report
	for id, doc := range s.collections[reportFile] {
		r, err := store.DecodeReport(doc)
		if err != nil {
			log.Warn().Err(err).Str("id", id).Msg("Skipping malformed report document")
			continue
		}
		if r.BuildingName != building || r.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !r.Date.Before(to) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) CreateReport(ctx context.Context, r model.Report) (string, error) {
	if err := store.Validate(r); err != nil {
		return "", err
	}
	r.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putLocked(reportFile, r.ID, store.EncodeReport(r)); err != nil {
		return "", err
	}
	return r.ID, nil
}

func (s *Store) UpdateReport(ctx context.Context, r model.Report) error {
	if err := store.Validate(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[reportFile][r.ID]; !ok {
		return store.ErrNotFound
	}
	return s.putLocked(reportFile, r.ID, store.EncodeReport(r))
}

func (s *Store) CreateAbnormal(ctx context.Context, rec model.AbnormalRecord) (string, error) {
	if err := store.Validate(rec); err != nil {
		return "", err
	}
	rec.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putLocked(abnormalFile, rec.ID, store.EncodeAbnormal(rec)); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// ListAbnormal returns all abnormal records, oldest first.
func (s *Store) ListAbnormal(ctx context.Context) ([]model.AbnormalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.AbnormalRecord, 0, len(s.collections[abnormalFile]))
	for _, doc := range s.collections[abnormalFile] {
		rec, err := store.DecodeAbnormal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// LoadLightSettings resolves user scope, then organization scope, then defaults.
func (s *Store) LoadLightSettings(ctx context.Context, scope store.Scope) (model.LightSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range scopeKeys(scope) {
		if doc, ok := s.collections[settingsFile][key]; ok {
			return store.DecodeLightSettings(doc, s.defaults), nil
		}
	}
	return s.defaults, nil
}

// SaveLightSettings stores settings for scope.
func (s *Store) SaveLightSettings(ctx context.Context, scope store.Scope, ls model.LightSettings) error {
	keys := scopeKeys(scope)
	if len(keys) == 0 {
		return fmt.Errorf("light settings need an organization or user scope")
	}
	doc := store.EncodeLightSettings(ls)
	doc["scope"] = keys[0]

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(settingsFile, keys[0], doc)
}

func scopeKeys(scope store.Scope) []string {
	var keys []string
	if scope.UserID != "" {
		keys = append(keys, "user:"+scope.UserID)
	}
	if scope.OrgID != "" {
		keys = append(keys, "org:"+scope.OrgID)
	}
	return keys
}
