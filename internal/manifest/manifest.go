// Package manifest records what a cleaning run did, next to its output.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/KaramelBytes/featprune-cli/internal/prune"
	"github.com/KaramelBytes/featprune-cli/internal/utils"
	"github.com/google/uuid"
)

const suffix = ".manifest.json"

// Manifest is the JSON sidecar written beside a cleaned dataset.
type Manifest struct {
	RunID        string    `json:"run_id"`
	Input        string    `json:"input"`
	Output       string    `json:"output"`
	Target       string    `json:"target"`
	Threshold    float64   `json:"threshold"`
	VarThreshold float64   `json:"var_threshold"`
	Rows         int       `json:"rows"`
	Considered   int       `json:"features_considered"`
	Kept         []string  `json:"kept"`
	Drops        []Entry   `json:"drops"`
	Plots        []string  `json:"plots,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`

	path string `json:"-"`
}

// Entry is one dropped column. Scores that are undefined are omitted.
type Entry struct {
	Column          string   `json:"column"`
	Reason          string   `json:"reason"`
	Partner         string   `json:"partner,omitempty"`
	Corr            *float64 `json:"corr,omitempty"`
	MeanCorr        *float64 `json:"mean_corr,omitempty"`
	PartnerMeanCorr *float64 `json:"partner_mean_corr,omitempty"`
	Variance        *float64 `json:"variance,omitempty"`
}

// PathFor returns the manifest location for a dataset written to output.
func PathFor(output string) string { return utils.SiblingPath(output, suffix) }

// New starts a manifest for a run writing to output.
func New(input, output string) *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		Input:     input,
		Output:    output,
		StartedAt: time.Now().UTC(),
		path:      PathFor(output),
	}
}

// Path returns where Stage writes.
func (m *Manifest) Path() string { return m.path }

// Record copies the outcome of a pruning run.
func (m *Manifest) Record(res *prune.Result, opt prune.Options) {
	m.Target = opt.Target
	m.Threshold = opt.Threshold
	m.VarThreshold = opt.VarThreshold
	m.Rows = res.Cleaned.Rows()
	m.Considered = res.Considered()
	m.Kept = res.KeptFeatures()
	m.Drops = m.Drops[:0]
	for _, name := range res.Drops.Names() {
		d, _ := res.Drops.Get(name)
		e := Entry{Column: d.Column, Reason: string(d.Reason), Partner: d.Partner}
		switch d.Reason {
		case prune.ReasonCorrelation:
			e.Corr = finite(d.Corr)
			e.MeanCorr = finite(d.MeanCorr)
			e.PartnerMeanCorr = finite(d.PartnerMeanCorr)
		case prune.ReasonLowVariance:
			e.Variance = finite(d.Variance)
		}
		m.Drops = append(m.Drops, e)
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Stage adds the manifest to st so it lands together with the run's other
// outputs.
func (m *Manifest) Stage(st *utils.Staged) error {
	data, err := m.encode()
	if err != nil {
		return err
	}
	return st.WriteFile(m.path, data)
}

func (m *Manifest) encode() ([]byte, error) {
	if m.path == "" {
		return nil, errors.New("manifest path not set")
	}
	if m.FinishedAt.IsZero() {
		m.FinishedAt = time.Now().UTC()
	}
	return utils.PrettyJSON(m)
}

// Load reads a manifest from path.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.path = path
	return &m, nil
}
