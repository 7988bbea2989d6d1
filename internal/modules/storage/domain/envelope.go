package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	progressdomain "docgrind/internal/modules/progress/domain"
	apperrors "docgrind/internal/platform/errors"
)

// CurrentVersion is the envelope version written by this build.
const CurrentVersion = 1

// Envelope wraps stored progress. LastSaved is epoch ms.
type Envelope struct {
	Progress  progressdomain.Progress `json:"progress"`
	Version   int                     `json:"version"`
	LastSaved int64                   `json:"lastSaved"`
}

// Fields is an envelope decoded only down to its top-level members, the
// shape migrations work on.
type Fields map[string]json.RawMessage

// Version reads the version member; a missing member means version 0.
func (f Fields) Version() (int, error) {
	raw, ok := f["version"]
	if !ok {
		return 0, nil
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("decode envelope version: %w", apperrors.ErrInvalidInput)
	}
	return v, nil
}

// Migration upgrades an envelope from version From to From+1.
type Migration struct {
	From  int
	Apply func(Fields) (Fields, error)
}

// LegacyDataMigration moves progress stored under the pre-versioned "data"
// member to "progress".
func LegacyDataMigration() Migration {
	return Migration{
		From: 0,
		Apply: func(f Fields) (Fields, error) {
			if _, ok := f["progress"]; ok {
				return f, nil
			}
			data, ok := f["data"]
			if !ok {
				return nil, fmt.Errorf("legacy envelope has no data: %w", apperrors.ErrMigrationFailed)
			}
			out := make(Fields, len(f))
			for k, v := range f {
				if k != "data" {
					out[k] = v
				}
			}
			out["progress"] = data
			return out, nil
		},
	}
}

// Migrate walks the registered chain from the stored version to
// CurrentVersion. Any gap or failure wraps ErrMigrationFailed.
func Migrate(f Fields, migrations map[int]Migration) (Fields, error) {
	from, err := f.Version()
	if err != nil {
		return nil, fmt.Errorf("migrate envelope: %w: %w", apperrors.ErrMigrationFailed, err)
	}
	if from > CurrentVersion {
		return nil, fmt.Errorf("migrate envelope from v%d: %w: %w", from, apperrors.ErrMigrationFailed, apperrors.ErrUnsupportedVersion)
	}
	for v := from; v < CurrentVersion; v++ {
		m, ok := migrations[v]
		if !ok {
			return nil, fmt.Errorf("migrate envelope from v%d: no migration: %w", v, apperrors.ErrMigrationFailed)
		}
		next, err := m.Apply(f)
		if err != nil {
			return nil, fmt.Errorf("migrate envelope from v%d: %w: %w", v, apperrors.ErrMigrationFailed, err)
		}
		version, _ := json.Marshal(v + 1)
		next["version"] = version
		f = next
	}
	return f, nil
}

// Usage is the byte footprint of everything under the key prefix.
type Usage struct {
	Used       int64            `json:"used"`
	Total      int64            `json:"total"`
	Percentage float64          `json:"percentage"`
	Documents  map[string]int64 `json:"documents"`
}

// DocumentsBySize orders document ids largest first, then by id.
func (u Usage) DocumentsBySize() []string {
	ids := make([]string, 0, len(u.Documents))
	for id := range u.Documents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if u.Documents[ids[i]] != u.Documents[ids[j]] {
			return u.Documents[ids[i]] > u.Documents[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Bundle is the whole-store export format. ExportDate is RFC 3339.
type Bundle struct {
	Version    int                        `json:"version"`
	ExportDate string                     `json:"exportDate"`
	Data       map[string]json.RawMessage `json:"data"`
}
