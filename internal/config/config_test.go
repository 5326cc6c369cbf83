package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("MAX_USES_PER_DAY", "5")
	t.Setenv("CHALLENGE_TTL", "2h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxUsesPerDay != 5 {
		t.Errorf("MaxUsesPerDay = %d, want 5", cfg.MaxUsesPerDay)
	}
	if cfg.ChallengeTTL != 2*time.Hour {
		t.Errorf("ChallengeTTL = %v, want 2h", cfg.ChallengeTTL)
	}
	if cfg.MinPostScore != 0.75 || cfg.MaxPromptLength != 1000 || cfg.DBPort != 5432 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Web3Provider != "https://sepolia.base.org" {
		t.Errorf("Web3Provider = %q", cfg.Web3Provider)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			MinPostScore:        0.75,
			MaxUsesPerDay:       20,
			MaxPromptLength:     1000,
			EmbeddingDimensions: 1536,
			ChallengeTTL:        time.Hour,
			CallTimeout:         time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "score too high", mutate: func(c *Config) { c.MinPostScore = 1.5 }, wantErr: true},
		{name: "no quota", mutate: func(c *Config) { c.MaxUsesPerDay = 0 }, wantErr: true},
		{name: "no prompt length", mutate: func(c *Config) { c.MaxPromptLength = 0 }, wantErr: true},
		{name: "no ttl", mutate: func(c *Config) { c.ChallengeTTL = 0 }, wantErr: true},
		{name: "no timeout", mutate: func(c *Config) { c.CallTimeout = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		catalog, err := LoadCatalog(t.TempDir())
		if err != nil {
			t.Fatalf("LoadCatalog() error = %v", err)
		}
		if !reflect.DeepEqual(catalog, DefaultCatalog()) {
			t.Errorf("catalog = %+v, want defaults", catalog)
		}
	})

	t.Run("from yaml", func(t *testing.T) {
		dir := t.TempDir()
		yaml := "platforms:\n  - Xbox\ncategories:\n  - name: Fighting\n    games:\n      - Tekken 8\n      - SoulCalibur VI\n"
		if err := os.WriteFile(filepath.Join(dir, "games.yaml"), []byte(yaml), 0o644); err != nil {
			t.Fatal(err)
		}

		catalog, err := LoadCatalog(dir)
		if err != nil {
			t.Fatalf("LoadCatalog() error = %v", err)
		}
		if !reflect.DeepEqual(catalog.Platforms, []string{"Xbox"}) {
			t.Errorf("Platforms = %v", catalog.Platforms)
		}
		if got := catalog.SearchGames("Fighting", "soul", 25); !reflect.DeepEqual(got, []string{"SoulCalibur VI"}) {
			t.Errorf("SearchGames() = %v", got)
		}
	})

	t.Run("empty catalog", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "games.yaml"), []byte("platforms: []\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadCatalog(dir); err == nil {
			t.Error("LoadCatalog() error = nil, want error")
		}
	})
}

func TestSearchGames(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name     string
		category string
		query    string
		limit    int
		want     []string
	}{
		{name: "category prefix", category: "Fighting", query: "t", limit: 2, want: []string{"Street Fighter 6", "Tekken 8"}},
		{name: "case insensitive", category: "Racing", query: "GRAN", limit: 25, want: []string{"Gran Turismo 7"}},
		{name: "unknown category searches all", category: "Puzzle", query: "23", limit: 25, want: []string{"FIFA 23", "NBA 2K23", "Madden NFL 23", "F1 23"}},
		{name: "no match", category: "Sports", query: "tekken", limit: 25, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := catalog.SearchGames(tt.category, tt.query, tt.limit); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SearchGames() = %v, want %v", got, tt.want)
			}
		})
	}
}
