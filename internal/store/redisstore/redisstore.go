package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"inspect-mcp/internal/model"
	"inspect-mcp/internal/store"
)

const (
	equipmentIDs    = "equipment:ids"
	equipmentPrefix = "equipment:"
	barcodePrefix   = "equipment:barcode:"
	reportPrefix    = "report:"
	buildingPrefix  = "report:building:"
	abnormalIDs     = "abnormal:ids"
	abnormalPrefix  = "abnormal:"
	settingsPrefix  = "settings:"
)

// Store keeps documents as JSON strings in Redis. Reports are indexed per
// building in a sorted set scored by their date in epoch milliseconds.
type Store struct {
	rdb      redis.UniversalClient
	prefix   string
	defaults model.LightSettings
}

// Options configures a Redis-backed store.
type Options struct {
	Address  string
	Password string
	DB       int
	// Prefix namespaces every key, so several deployments can share one database.
	Prefix string
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, opts Options, defaults model.LightSettings) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", opts.Address, err)
	}
	log.Info().Str("addr", opts.Address).Int("db", opts.DB).Msg("Connected to redis")
	return New(rdb, opts.Prefix, defaults), nil
}

// New wraps an existing client.
func New(rdb redis.UniversalClient, prefix string, defaults model.LightSettings) *Store {
	return &Store{rdb: rdb, prefix: prefix, defaults: defaults}
}

// Client exposes the underlying client, e.g. for a Locker.
func (s *Store) Client() redis.UniversalClient {
	return s.rdb
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += p
	}
	return k
}

func (s *Store) getDoc(ctx context.Context, key string) (store.Document, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc store.Document
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, fmt.Errorf("invalid document at %s: %w", key, err)
	}
	return doc, nil
}

func (s *Store) getDocs(ctx context.Context, keys []string) ([]store.Document, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	docs := make([]store.Document, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var doc store.Document
		if err := json.Unmarshal([]byte(str), &doc); err != nil {
			log.Warn().Err(err).Str("key", keys[i]).Msg("Skipping invalid JSON document in redis")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func marshal(doc store.Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(b), nil
}

func (s *Store) ListEquipment(ctx context.Context, f store.Filter) ([]model.Equipment, error) {
	ids, err := s.rdb.SMembers(ctx, s.key(equipmentIDs)).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(equipmentPrefix, id)
	}
	docs, err := s.getDocs(ctx, keys)
	if err != nil {
		return nil, err
	}

	var out []model.Equipment
	for _, doc := range docs {
		e, err := store.DecodeEquipment(doc)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping malformed equipment document")
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
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetEquipment(ctx context.Context, id string) (model.Equipment, error) {
	doc, err := s.getDoc(ctx, s.key(equipmentPrefix, id))
	if err != nil {
		return model.Equipment{}, err
	}
	return store.DecodeEquipment(doc)
}

func (s *Store) FindEquipmentByBarcode(ctx context.Context, barcode string) (model.Equipment, error) {
	if barcode == "" {
		return model.Equipment{}, store.ErrNotFound
	}
	id, err := s.rdb.Get(ctx, s.key(barcodePrefix, barcode)).Result()
	if errors.Is(err, redis.Nil) {
		return model.Equipment{}, store.ErrNotFound
	}
	if err != nil {
		return model.Equipment{}, err
	}
	return s.GetEquipment(ctx, id)
}

func (s *Store) SaveEquipment(ctx context.Context, e model.Equipment) error {
	if err := store.Validate(e); err != nil {
		return err
	}
	val, err := marshal(store.EncodeEquipment(e))
	if err != nil {
		return err
	}

	var oldBarcode string
	if prev, err := s.GetEquipment(ctx, e.ID); err == nil {
		oldBarcode = prev.Barcode
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(equipmentPrefix, e.ID), val, 0)
		pipe.SAdd(ctx, s.key(equipmentIDs), e.ID)
		if oldBarcode != "" && oldBarcode != e.Barcode {
			pipe.Del(ctx, s.key(barcodePrefix, oldBarcode))
		}
		if e.Barcode != "" {
			pipe.Set(ctx, s.key(barcodePrefix, e.Barcode), e.ID, 0)
		}
		return nil
	})
	return err
}

// UpdateLastInspected rewrites the equipment document under WATCH so a
// concurrent edit of the same item is not lost.
func (s *Store) UpdateLastInspected(ctx context.Context, id string, at time.Time) error {
	key := s.key(equipmentPrefix, id)
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		var doc store.Document
		if err := json.Unmarshal([]byte(val), &doc); err != nil {
			return fmt.Errorf("invalid document at %s: %w", key, err)
		}
		doc["lastInspectedDate"] = at.UnixMilli()
		out, err := marshal(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}, key)
}

func (s *Store) FindReports(ctx context.Context, building string, from, to time.Time) ([]model.Report, error) {
	rng := &redis.ZRangeBy{Min: fmt.Sprint(from.UnixMilli()), Max: "+inf"}
	if !to.IsZero() {
		rng.Max = fmt.Sprintf("(%d", to.UnixMilli())
	}
	ids, err := s.rdb.ZRangeByScore(ctx, s.key(buildingPrefix, building), rng).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(reportPrefix, id)
	}
	docs, err := s.getDocs(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]model.Report, 0, len(docs))
	for _, doc := range docs {
		r, err := store.DecodeReport(doc)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping malformed report document")
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) CreateReport(ctx context.Context, r model.Report) (string, error) {
	if err := store.Validate(r); err != nil {
		return "", err
	}
	r.ID = uuid.NewString()
	val, err := marshal(store.EncodeReport(r))
	if err != nil {
		return "", err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(reportPrefix, r.ID), val, 0)
		pipe.ZAdd(ctx, s.key(buildingPrefix, r.BuildingName), redis.Z{Score: float64(r.Date.UnixMilli()), Member: r.ID})
		return nil
	})
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

func (s *Store) UpdateReport(ctx context.Context, r model.Report) error {
	if err := store.Validate(r); err != nil {
		return err
	}
	val, err := marshal(store.EncodeReport(r))
	if err != nil {
		return err
	}
	// XX: only overwrite an existing report.
	ok, err := s.rdb.SetXX(ctx, s.key(reportPrefix, r.ID), val, redis.KeepTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAbnormal(ctx context.Context, rec model.AbnormalRecord) (string, error) {
	if err := store.Validate(rec); err != nil {
		return "", err
	}
	rec.ID = uuid.NewString()
	val, err := marshal(store.EncodeAbnormal(rec))
	if err != nil {
		return "", err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(abnormalPrefix, rec.ID), val, 0)
		pipe.ZAdd(ctx, s.key(abnormalIDs), redis.Z{Score: float64(rec.CreatedAt.UnixMilli()), Member: rec.ID})
		return nil
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// ListAbnormal returns all abnormal records, oldest first.
func (s *Store) ListAbnormal(ctx context.Context) ([]model.AbnormalRecord, error) {
	ids, err := s.rdb.ZRange(ctx, s.key(abnormalIDs), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(abnormalPrefix, id)
	}
	docs, err := s.getDocs(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]model.AbnormalRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := store.DecodeAbnormal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// LoadLightSettings resolves user scope, then organization scope, then defaults.
func (s *Store) LoadLightSettings(ctx context.Context, scope store.Scope) (model.LightSettings, error) {
	for _, k := range scopeKeys(scope) {
		doc, err := s.getDoc(ctx, s.key(settingsPrefix, k))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return model.LightSettings{}, err
		}
		return store.DecodeLightSettings(doc, s.defaults), nil
	}
	return s.defaults, nil
}

func (s *Store) SaveLightSettings(ctx context.Context, scope store.Scope, ls model.LightSettings) error {
	keys := scopeKeys(scope)
	if len(keys) == 0 {
		return fmt.Errorf("light settings need an organization or user scope")
	}
	val, err := marshal(store.EncodeLightSettings(ls))
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(settingsPrefix, keys[0]), val, 0).Err()
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
