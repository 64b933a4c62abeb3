// Package snapshot persists and restores the state a tournament manager
// needs to resume an interrupted run: the configuration pool, its skill
// ratings, the current contender set, and the tournament counter. It plays
// the same role the original implementation's pickled tournament_manager
// object does on resume/experimental, rendered as a single YAML document
// instead of a language-specific serialization format.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jihwankim/rtac/pkg/ranker"
	"github.com/jihwankim/rtac/pkg/space"
	"gopkg.in/yaml.v3"
)

// Snapshot is the full resumable state of one scenario run at the
// boundary between two tournaments.
type Snapshot struct {
	TournNr    int                         `yaml:"tourn_nr"`
	Pool       map[string]*space.Configuration `yaml:"pool"`
	Scores     ranker.ScoreBook            `yaml:"scores"`
	Contenders []string                    `yaml:"contenders"`
	DefaultID  string                      `yaml:"default_id"`
}

// fileName returns the snapshot file for tournament n, mirroring the
// per-tournament pool/scores log naming in pkg/reporting so a resume point
// and its human-readable logs share an index.
func fileName(n int) string {
	return fmt.Sprintf("snapshot_tourn_%d.yaml", n)
}

// Save writes the snapshot for tournament n under dir.
func Save(dir string, n int, snap *Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	path := filepath.Join(dir, fileName(n))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("snapshot: writing %s: %w", path, err)
	}
	return nil
}

// Load reads the snapshot for tournament n under dir.
func Load(dir string, n int) (*Snapshot, error) {
	path := filepath.Join(dir, fileName(n))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading %s: %w", path, err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: parsing %s: %w", path, err)
	}
	return &snap, nil
}

// LoadLatest finds and loads the highest-numbered snapshot under dir,
// matching the original implementation's "resume" behavior of picking up
// from the most recent tournament rather than a caller-chosen one.
func LoadLatest(dir string) (*Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading %s: %w", dir, err)
	}
	best := -1
	for _, e := range entries {
		var n int
		if _, err := fmt.Sscanf(e.Name(), "snapshot_tourn_%d.yaml", &n); err == nil {
			if n > best {
				best = n
			}
		}
	}
	if best == -1 {
		return nil, fmt.Errorf("snapshot: no snapshot found under %s", dir)
	}
	return Load(dir, best)
}

// LoadExperimental loads the tournament-0 snapshot specifically, matching
// the original implementation's "experimental" flag semantics: start from
// the initial pool rather than wherever the run last left off.
func LoadExperimental(dir string) (*Snapshot, error) {
	return Load(dir, 0)
}

// FromPool captures a pool.Manager's current state into a Snapshot. It
// takes the pieces it needs directly rather than importing pkg/pool, since
// pkg/pool already imports pkg/ranker and pkg/space and a snapshot<->pool
// import cycle would otherwise result.
func FromPool(tournNr int, pool map[string]*space.Configuration, scores ranker.ScoreBook, contenders []string, defaultID string) *Snapshot {
	return &Snapshot{
		TournNr:    tournNr,
		Pool:       pool,
		Scores:     scores,
		Contenders: contenders,
		DefaultID:  defaultID,
	}
}
