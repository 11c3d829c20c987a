package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pv/algoviz-go/internal/listing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadYAMLAndResolve(t *testing.T) {
	path := writeConfig(t, "algoviz.yaml", `
http:
  addr: 127.0.0.1:9000
playback:
  base_interval: 750ms
  speed: 2
listings: listings.yaml
sets:
  fast: [quick, merge-sort]
  simple: [bubble, insertion, bubble]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Fatalf("addr = %q", cfg.HTTP.Addr)
	}
	if time.Duration(cfg.Playback.BaseInterval) != 750*time.Millisecond || cfg.Playback.Speed != 2 {
		t.Fatalf("playback = %+v", cfg.Playback)
	}
	if cfg.CacheSize != 256 {
		t.Fatalf("cache size default lost: %d", cfg.CacheSize)
	}
	if cfg.Listings != filepath.Join(filepath.Dir(path), "listings.yaml") {
		t.Fatalf("listings path = %q", cfg.Listings)
	}

	cases := map[string][]listing.Algorithm{
		"ALL":               {listing.Bubble, listing.Insertion, listing.Quick, listing.Merge},
		"":                  {listing.Bubble, listing.Insertion, listing.Quick, listing.Merge},
		"fast":              {listing.Quick, listing.Merge},
		"simple":            {listing.Bubble, listing.Insertion},
		"Quick":             {listing.Quick},
		"q*":                {listing.Quick},
		"*-sort":            {listing.Bubble, listing.Insertion, listing.Quick, listing.Merge},
		"merge, i*, merge":  {listing.Merge, listing.Insertion},
		"bubble_sort,quick": {listing.Bubble, listing.Quick},
	}
	for selector, want := range cases {
		got, err := cfg.Resolve(selector)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", selector, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Resolve(%q) = %v, want %v", selector, got, want)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	var cfg *Config
	for _, selector := range []string{"heap", "code", "x*", "[", ", ,"} {
		if _, err := cfg.Resolve(selector); err == nil {
			t.Fatalf("Resolve(%q) should fail", selector)
		}
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "algoviz.json", `{"playback": {"base_interval": "2s"}, "cache_size": 0, "sets": {"one": ["merge"]}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if time.Duration(cfg.Playback.BaseInterval) != 2*time.Second || cfg.Playback.Speed != 1 || cfg.CacheSize != 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("addr default lost: %q", cfg.HTTP.Addr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"speed.yaml":    "playback:\n  speed: -1\n",
		"interval.yaml": "playback:\n  base_interval: 0s\n",
		"duration.yaml": "playback:\n  base_interval: soon\n",
		"set.yaml":      "sets:\n  broken: [heap]\n",
		"empty.yaml":    "sets:\n  none: []\n",
		"bad.json":      "{",
		"conf.toml":     "x = 1",
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, name, content)); err == nil {
			t.Fatalf("Load(%s) should fail", name)
		}
	}
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "path is empty") {
		t.Fatalf("Load(\"\") = %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load(missing) should fail")
	}
}
