package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Defaults(), c); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	c := Defaults()
	c.Threshold = 0.8
	c.TargetCol = "y"
	if err := Save(c, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Setenv("FEATPRUNE_THRESHOLD", "0.75")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Threshold != 0.75 {
		t.Fatalf("threshold = %v, want env value 0.75", got.Threshold)
	}
	if got.TargetCol != "y" {
		t.Fatalf("target_col = %q, want file value y", got.TargetCol)
	}
	if got.SampleN != 2000 {
		t.Fatalf("sample_n = %d, want default 2000", got.SampleN)
	}
}

func TestSaveDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c := Defaults()
	c.Seed = 7
	if err := Save(c, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".featprune", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	got, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Seed != 7 {
		t.Fatalf("seed = %d, want 7", got.Seed)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Global)
	}{
		{"threshold above one", func(c *Global) { c.Threshold = 1.5 }},
		{"negative threshold", func(c *Global) { c.Threshold = -0.1 }},
		{"negative var threshold", func(c *Global) { c.VarThreshold = -1 }},
		{"empty target", func(c *Global) { c.TargetCol = "" }},
		{"zero sample", func(c *Global) { c.SampleN = 0 }},
		{"zero features", func(c *Global) { c.PairplotFeatures = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Defaults()
			tc.mod(c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
