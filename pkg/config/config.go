package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pv/algoviz-go/internal/listing"
)

// Duration: time.Duration, который читается из строк вида "750ms" в YAML и JSON.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// HTTP: настройки управляющего HTTP API.
type HTTP struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Playback: параметры проигрывания по умолчанию для новых сессий.
type Playback struct {
	BaseInterval Duration `yaml:"base_interval" json:"base_interval"`
	Speed        float64  `yaml:"speed" json:"speed"`
}

// Config описывает настройки сервиса и наборы алгоритмов.
type Config struct {
	HTTP      HTTP                `yaml:"http" json:"http"`
	Playback  Playback            `yaml:"playback" json:"playback"`
	Listings  string              `yaml:"listings" json:"listings"` // файл с листингами поверх встроенных
	CacheSize int                 `yaml:"cache_size" json:"cache_size"`
	Sets      map[string][]string `yaml:"sets" json:"sets"`
}

// Defaults возвращает конфигурацию, которая действует без файла.
func Defaults() *Config {
	return &Config{
		HTTP:      HTTP{Addr: ":8080"},
		Playback:  Playback{BaseInterval: Duration(time.Second), Speed: 1},
		CacheSize: 256,
		Sets:      map[string][]string{},
	}
}

// Load загружает конфигурацию из YAML или JSON. Отсутствующие поля берутся из Defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Defaults()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to decode YAML: %w", err)
		}
	case ".json", "":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to decode JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: format %s is not supported yet", ext)
	}
	if cfg.Sets == nil {
		cfg.Sets = map[string][]string{}
	}
	if cfg.Listings != "" && !filepath.IsAbs(cfg.Listings) {
		cfg.Listings = filepath.Join(filepath.Dir(path), cfg.Listings)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения и состав наборов.
func (c *Config) Validate() error {
	if c.Playback.BaseInterval <= 0 {
		return errors.New("config: playback.base_interval must be > 0")
	}
	if c.Playback.Speed <= 0 {
		return errors.New("config: playback.speed must be > 0")
	}
	if c.CacheSize < 0 {
		return errors.New("config: cache_size must be >= 0")
	}
	for name, members := range c.Sets {
		if len(members) == 0 {
			return fmt.Errorf("config: set %q is empty", name)
		}
		for _, m := range members {
			if _, err := c.resolveSingle(strings.TrimSpace(m)); err != nil {
				return fmt.Errorf("config: set %q: %w", name, err)
			}
		}
	}
	return nil
}

// Resolve возвращает алгоритмы сортировки согласно селектору.
// Селектор: "ALL", имя набора из Sets, имя алгоритма, шаблон вида "*-sort" или список через запятую.
// Повторы отбрасываются, порядок первого появления сохраняется.
func (c *Config) Resolve(selector string) ([]listing.Algorithm, error) {
	if c == nil {
		c = Defaults()
	}
	selector = strings.TrimSpace(selector)
	if selector == "" || strings.EqualFold(selector, "ALL") {
		return listing.SortingAlgorithms(), nil
	}
	if names, ok := c.Sets[selector]; ok {
		return c.resolveList(names)
	}
	if strings.Contains(selector, ",") {
		return c.resolveList(strings.Split(selector, ","))
	}
	return c.resolveSingle(selector)
}

func (c *Config) resolveList(names []string) ([]listing.Algorithm, error) {
	var out []listing.Algorithm
	seen := map[listing.Algorithm]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		resolved, err := c.resolveSingle(name)
		if err != nil {
			return nil, err
		}
		for _, alg := range resolved {
			if !seen[alg] {
				seen[alg] = true
				out = append(out, alg)
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New("config: result is empty")
	}
	return out, nil
}

func (c *Config) resolveSingle(selector string) ([]listing.Algorithm, error) {
	if alg, err := listing.ParseAlgorithm(selector); err == nil {
		if !alg.IsSorting() {
			return nil, fmt.Errorf("config: %s is not a sorting algorithm", alg)
		}
		return []listing.Algorithm{alg}, nil
	}
	if strings.ContainsAny(selector, "*?[") {
		return matchPattern(selector)
	}
	return nil, fmt.Errorf("config: failed to resolve selector %q", selector)
}

func matchPattern(pattern string) ([]listing.Algorithm, error) {
	var out []listing.Algorithm
	for _, alg := range listing.SortingAlgorithms() {
		ok, err := filepath.Match(pattern, string(alg))
		if err != nil {
			return nil, fmt.Errorf("config: invalid pattern %q: %w", pattern, err)
		}
		if ok {
			out = append(out, alg)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("config: no algorithms match pattern %q", pattern)
	}
	return out, nil
}
