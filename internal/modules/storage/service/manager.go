package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	bookmarkdomain "docgrind/internal/modules/bookmark/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	progressdomain "docgrind/internal/modules/progress/domain"
	"docgrind/internal/modules/storage/domain"
	storageout "docgrind/internal/modules/storage/port/out"
	"docgrind/internal/platform/clock"
	apperrors "docgrind/internal/platform/errors"
	"docgrind/internal/platform/report"
	"docgrind/internal/platform/retry"
)

// evictionTarget is the share of the quota that eviction frees down to.
const evictionTarget = 0.8

type Config struct {
	KeyPrefix    string
	MaxSizeBytes int64
	Compression  bool
	Retry        retry.Policy
}

// Manager is the persistence gateway. It keeps no document state of its own.
type Manager struct {
	cfg        Config
	keys       domain.Keys
	store      storageout.KVStore
	clock      clock.Clock
	reports    *report.Handler
	log        zerolog.Logger
	migrations map[int]domain.Migration
}

func NewManager(cfg Config, store storageout.KVStore, clk clock.Clock, reports *report.Handler, log zerolog.Logger) *Manager {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "reading-progress"
	}
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = 5 * 1024 * 1024
	}
	m := &Manager{
		cfg:        cfg,
		keys:       domain.Keys{Prefix: cfg.KeyPrefix},
		store:      store,
		clock:      clk,
		reports:    reports,
		log:        log,
		migrations: map[int]domain.Migration{},
	}
	m.RegisterMigration(domain.LegacyDataMigration())
	return m
}

// RegisterMigration adds or replaces the step that upgrades envelopes from m.From.
func (m *Manager) RegisterMigration(mig domain.Migration) {
	m.migrations[mig.From] = mig
}

func (m *Manager) Keys() domain.Keys { return m.keys }

func (m *Manager) SaveProgress(ctx context.Context, progress progressdomain.Progress) error {
	env := domain.Envelope{
		Progress:  progress,
		Version:   domain.CurrentVersion,
		LastSaved: clock.Millis(m.clock.Now()),
	}
	return m.setItem(ctx, m.keys.For(domain.KindProgress, progress.DocumentID), progress.DocumentID, env)
}

// LoadProgress returns the stored progress, migrating older envelopes and
// writing the migrated form back. A missing, unreadable or unmigratable
// envelope yields ErrNotFound.
func (m *Manager) LoadProgress(ctx context.Context, documentID string) (progressdomain.Progress, error) {
	key := m.keys.For(domain.KindProgress, documentID)
	var fields domain.Fields
	found, err := m.getItem(ctx, key, &fields)
	if err != nil {
		return progressdomain.Progress{}, fmt.Errorf("load progress %s: %w: %w", documentID, apperrors.ErrNotFound, err)
	}
	if !found {
		m.log.Debug().Str("document_id", documentID).Msg("no stored progress")
		return progressdomain.Progress{}, fmt.Errorf("load progress %s: %w", documentID, apperrors.ErrNotFound)
	}

	version, err := fields.Version()
	migrated := false
	if err == nil && version != domain.CurrentVersion {
		fields, err = domain.Migrate(fields, m.migrations)
		migrated = err == nil
	}
	if err != nil {
		m.reports.Handle(err, report.ContextStorage+": migrate", report.Medium, map[string]any{"key": key})
		return progressdomain.Progress{}, fmt.Errorf("load progress %s: %w: %w", documentID, apperrors.ErrNotFound, err)
	}

	var progress progressdomain.Progress
	if err := json.Unmarshal(fields["progress"], &progress); err != nil {
		m.reports.Handle(err, report.ContextStorage+": decode", report.Medium, map[string]any{"key": key})
		return progressdomain.Progress{}, fmt.Errorf("load progress %s: %w: %w", documentID, apperrors.ErrNotFound, err)
	}
	if migrated {
		m.log.Info().Str("document_id", documentID).Int("from_version", version).Msg("progress migrated")
		if err := m.SaveProgress(ctx, progress); err != nil {
			m.log.Warn().Err(err).Str("document_id", documentID).Msg("persist migrated progress")
		}
	}
	return progress, nil
}

func (m *Manager) SavePosition(ctx context.Context, pos positiondomain.ReadingPosition) error {
	return m.setItem(ctx, m.keys.For(domain.KindPosition, pos.DocumentID), pos.DocumentID, pos)
}

func (m *Manager) LoadPosition(ctx context.Context, documentID string) (positiondomain.ReadingPosition, error) {
	var pos positiondomain.ReadingPosition
	found, err := m.getItem(ctx, m.keys.For(domain.KindPosition, documentID), &pos)
	if err != nil {
		return positiondomain.ReadingPosition{}, err
	}
	if !found {
		return positiondomain.ReadingPosition{}, fmt.Errorf("load position %s: %w", documentID, apperrors.ErrNotFound)
	}
	return pos.Normalize(), nil
}

func (m *Manager) SaveSessions(ctx context.Context, documentID string, sessions []progressdomain.Session) error {
	if sessions == nil {
		sessions = []progressdomain.Session{}
	}
	return m.setItem(ctx, m.keys.For(domain.KindSessions, documentID), documentID, sessions)
}

func (m *Manager) LoadSessions(ctx context.Context, documentID string) ([]progressdomain.Session, error) {
	var sessions []progressdomain.Session
	if _, err := m.getItem(ctx, m.keys.For(domain.KindSessions, documentID), &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (m *Manager) SaveBookmarks(ctx context.Context, documentID string, bookmarks []bookmarkdomain.Bookmark) error {
	if bookmarks == nil {
		bookmarks = []bookmarkdomain.Bookmark{}
	}
	return m.setItem(ctx, m.keys.For(domain.KindBookmarks, documentID), documentID, bookmarks)
}

func (m *Manager) LoadBookmarks(ctx context.Context, documentID string) ([]bookmarkdomain.Bookmark, error) {
	var bookmarks []bookmarkdomain.Bookmark
	if _, err := m.getItem(ctx, m.keys.For(domain.KindBookmarks, documentID), &bookmarks); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// Documents lists every document with at least one stored key.
func (m *Manager) Documents(ctx context.Context) ([]string, error) {
	keys, err := m.store.Keys(ctx, m.cfg.KeyPrefix)
	if err != nil {
		m.reports.Handle(err, report.ContextStorage+": list", report.Medium, nil)
		return nil, fmt.Errorf("list documents: %w", err)
	}
	seen := map[string]bool{}
	var out []string
	for _, key := range keys {
		if _, doc, ok := m.keys.Parse(key); ok && !seen[doc] {
			seen[doc] = true
			out = append(out, doc)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Usage measures stored bytes as the length of each encoded value.
func (m *Manager) Usage(ctx context.Context) (domain.Usage, error) {
	usage, _, err := m.usage(ctx)
	if err != nil {
		m.reports.Handle(err, report.ContextStorage+": usage", report.Medium, nil)
		return domain.Usage{Total: m.cfg.MaxSizeBytes, Documents: map[string]int64{}}, err
	}
	return usage, nil
}

func (m *Manager) usage(ctx context.Context) (domain.Usage, map[string]int64, error) {
	usage := domain.Usage{Total: m.cfg.MaxSizeBytes, Documents: map[string]int64{}}
	keys, err := m.store.Keys(ctx, m.cfg.KeyPrefix)
	if err != nil {
		return usage, nil, fmt.Errorf("list keys: %w", err)
	}
	sizes := make(map[string]int64, len(keys))
	for _, key := range keys {
		value, ok, err := m.store.Get(ctx, key)
		if err != nil {
			return usage, nil, fmt.Errorf("read %s: %w", key, err)
		}
		if !ok {
			continue
		}
		size := int64(len(value))
		sizes[key] = size
		usage.Used += size
		if _, doc, ok := m.keys.Parse(key); ok {
			usage.Documents[doc] += size
		}
	}
	usage.Percentage = float64(usage.Used) / float64(usage.Total) * 100
	return usage, sizes, nil
}

func (m *Manager) ExportData(ctx context.Context) ([]byte, error) {
	keys, err := m.store.Keys(ctx, m.cfg.KeyPrefix)
	if err != nil {
		m.reports.Handle(err, report.ContextStorage+": export", report.Medium, nil)
		return nil, fmt.Errorf("export data: %w", err)
	}
	bundle := domain.Bundle{
		Version:    domain.CurrentVersion,
		ExportDate: m.clock.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Data:       make(map[string]json.RawMessage, len(keys)),
	}
	for _, key := range keys {
		value, ok, err := m.readDecoded(ctx, key)
		if err != nil {
			m.reports.Handle(err, report.ContextStorage+": export", report.Medium, map[string]any{"key": key})
			return nil, fmt.Errorf("export data: %w", err)
		}
		if !ok {
			continue
		}
		if json.Valid([]byte(value)) {
			bundle.Data[key] = json.RawMessage(value)
			continue
		}
		quoted, _ := json.Marshal(value)
		bundle.Data[key] = quoted
	}
	out, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	m.log.Debug().Int("keys", len(bundle.Data)).Msg("data exported")
	return out, nil
}

// ImportData writes every entry of an export bundle back verbatim. A
// version other than the current one is only a warning.
func (m *Manager) ImportData(ctx context.Context, raw []byte) (int, error) {
	var bundle struct {
		Version *int                       `json:"version"`
		Data    map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return 0, fmt.Errorf("import data: %w: %v", apperrors.ErrInvalidInput, err)
	}
	if bundle.Version == nil || bundle.Data == nil {
		return 0, fmt.Errorf("import data: missing version or data: %w", apperrors.ErrInvalidInput)
	}
	if *bundle.Version != domain.CurrentVersion {
		m.log.Warn().Int("version", *bundle.Version).Int("current", domain.CurrentVersion).Msg("import version mismatch")
	}
	keys := make([]string, 0, len(bundle.Data))
	for key := range bundle.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	written := 0
	var errs []error
	for _, key := range keys {
		_, doc, _ := m.keys.Parse(key)
		if err := m.setItem(ctx, key, doc, bundle.Data[key]); err != nil {
			errs = append(errs, err)
			continue
		}
		written++
	}
	m.log.Debug().Int("written", written).Int("entries", len(keys)).Msg("data imported")
	return written, errors.Join(errs...)
}

// ClearDocument removes all four keys of a document. Keys that fail to go
// are reported; whatever remains reads as missing data later.
func (m *Manager) ClearDocument(ctx context.Context, documentID string) error {
	var errs []error
	for _, key := range m.keys.Document(documentID) {
		if err := m.removeItem(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clear document %s: %w", documentID, err)
	}
	m.log.Debug().Str("document_id", documentID).Msg("document cleared")
	return nil
}

func (m *Manager) ClearAllData(ctx context.Context) error {
	keys, err := m.store.Keys(ctx, m.cfg.KeyPrefix)
	if err != nil {
		m.reports.Handle(err, report.ContextStorage+": clear", report.Medium, nil)
		return fmt.Errorf("clear all data: %w", err)
	}
	var errs []error
	for _, key := range keys {
		if err := m.removeItem(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clear all data: %w", err)
	}
	return nil
}

// setItem encodes value, makes room for it under the quota and writes it
// with retries. documentID is the owner of key, never evicted for it.
func (m *Manager) setItem(ctx context.Context, key, documentID string, value any) error {
	serialized, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	encoded := string(serialized)
	if m.cfg.Compression {
		if compressed, err := compress(encoded); err != nil {
			m.log.Warn().Err(err).Str("key", key).Msg("store uncompressed")
		} else {
			encoded = compressed
		}
	}
	if err := m.ensureRoom(ctx, key, documentID, int64(len(encoded))); err != nil {
		return err
	}
	err = m.reports.WithRetry(ctx, report.ContextStorage+": write", m.cfg.Retry, func(ctx context.Context) error {
		return m.store.Set(ctx, key, encoded)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	m.log.Debug().Str("key", key).Int("bytes", len(encoded)).Msg("stored")
	return nil
}

// ensureRoom evicts whole documents, largest first, when writing size bytes
// to key would exceed the quota. Eviction stops once projected usage is
// under the eviction target.
func (m *Manager) ensureRoom(ctx context.Context, key, documentID string, size int64) error {
	usage, sizes, err := m.usage(ctx)
	if err != nil {
		m.log.Warn().Err(err).Str("key", key).Msg("skip quota check")
		return nil
	}
	used := usage.Used - sizes[key]
	limit := m.cfg.MaxSizeBytes
	if used+size <= limit {
		return nil
	}
	target := int64(float64(limit) * evictionTarget)
	m.log.Warn().Int64("used", used).Int64("bytes", size).Int64("limit", limit).Msg("storage quota exceeded, evicting")

	for _, doc := range usage.DocumentsBySize() {
		if used+size < target {
			break
		}
		if doc == documentID {
			continue
		}
		for _, docKey := range m.keys.Document(doc) {
			if sizes[docKey] == 0 {
				continue
			}
			if err := m.store.Remove(ctx, docKey); err != nil {
				m.log.Warn().Err(err).Str("key", docKey).Msg("evict key")
				continue
			}
			used -= sizes[docKey]
		}
		m.log.Info().Str("document_id", doc).Int64("bytes", usage.Documents[doc]).Msg("document evicted")
	}
	if used+size > limit {
		err := fmt.Errorf("write %s needs %d bytes, %d of %d in use: %w", key, size, used, limit, apperrors.ErrQuotaExceeded)
		m.reports.Handle(err, report.ContextStorage+": quota", report.High, map[string]any{"key": key, "bytes": size})
		return err
	}
	return nil
}

func (m *Manager) readDecoded(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := m.store.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	return decompress(value), true, nil
}

// getItem decodes the value at key into out and reports whether it existed.
func (m *Manager) getItem(ctx context.Context, key string, out any) (bool, error) {
	value, ok, err := m.readDecoded(ctx, key)
	if err != nil {
		m.reports.Handle(err, report.ContextStorage+": read", report.Medium, map[string]any{"key": key})
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		m.reports.Handle(err, report.ContextStorage+": decode", report.Medium, map[string]any{"key": key})
		return false, fmt.Errorf("decode %s: %w: %v", key, apperrors.ErrInvalidInput, err)
	}
	return true, nil
}

func (m *Manager) removeItem(ctx context.Context, key string) error {
	err := m.reports.WithRetry(ctx, report.ContextStorage+": remove", m.cfg.Retry, func(ctx context.Context) error {
		return m.store.Remove(ctx, key)
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
