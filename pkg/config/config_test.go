package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/ranker"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Engine.Weights.MatchWeight != 1000 {
		t.Errorf("default match weight = %d", cfg.Engine.Weights.MatchWeight)
	}
	if cfg.Redis.Addr != "" || len(cfg.Kafka.Brokers) != 0 || cfg.Postgres.Host != "" {
		t.Error("optional backends should be disabled by default")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  readTimeout: 5s
engine:
  stopWords: [foo, bar]
  weights:
    matchWeight: 50
    freqWeight: 2
    phraseBonus: 100000000
  suggestLimit: 3
search:
  defaultLimit: 5
  maxResults: 20
redis:
  addr: localhost:6379
  cacheTTL: 30s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("unset field lost its default: %v", cfg.Server.WriteTimeout)
	}
	if !reflect.DeepEqual(cfg.Engine.StopWords, []string{"foo", "bar"}) {
		t.Errorf("stop words = %v", cfg.Engine.StopWords)
	}
	if cfg.Engine.Weights.MatchWeight != 50 || cfg.Engine.Weights.FreqWeight != 2 || cfg.Engine.Weights.PhraseBonus != 100000000 {
		t.Errorf("weights = %+v", cfg.Engine.Weights)
	}
	if cfg.Engine.SuggestLimit != 3 || cfg.Search.DefaultLimit != 5 || cfg.Search.MaxResults != 20 {
		t.Errorf("limits not applied: %+v %+v", cfg.Engine, cfg.Search)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.CacheTTL != 30*time.Second {
		t.Errorf("redis = %+v", cfg.Redis)
	}
}

func TestLoadRejectsBadWeights(t *testing.T) {
	path := writeConfig(t, `
engine:
  weights:
    matchWeight: 1
    freqWeight: 5
    phraseBonus: 10
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for freq weight above match weight")
	}
}

func TestLoadRejectsPhraseBonusBelowPageScore(t *testing.T) {
	path := writeConfig(t, `
engine:
  maxPageBytes: 4096
  weights:
    matchWeight: 1000
    freqWeight: 1
    phraseBonus: 1001
`)
	_, err := Load(path)
	if !errors.Is(err, ranker.ErrInvalidWeights) {
		t.Fatalf("Load error = %v, want ErrInvalidWeights", err)
	}

	cfg := Default()
	cfg.Engine.MaxPageBytes = 4096
	cfg.Engine.Weights.PhraseBonus = 1001*2048 + 1
	if err := cfg.Validate(); err != nil {
		t.Errorf("bonus above the page ceiling rejected: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PS_SERVER_PORT", "7070")
	t.Setenv("PS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PS_ENGINE_STOP_WORDS", "x,y")
	t.Setenv("PS_LOGGING_LEVEL", "debug")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if !reflect.DeepEqual(cfg.Engine.StopWords, []string{"x", "y"}) {
		t.Errorf("stop words = %v", cfg.Engine.StopWords)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Search.DefaultLimit = 0
	cfg.Engine.SuggestLimit = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation errors")
	}
	if got := Default().Postgres.DSN(); got == "" {
		t.Error("DSN should not be empty")
	}
}
