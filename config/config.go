package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging     LoggingConfig   `yaml:"logging"`
	MongoURI    string          `yaml:"mongo_uri"`
	MongoDBName string          `yaml:"mongo_db_name"`
	GeminiApiKey string         `yaml:"gemini_api_key"`
	Gemini      GeminiConfig    `yaml:"gemini"`
	Ingest      IngestConfig    `yaml:"ingest"`
	AIScoring   AIScoringConfig `yaml:"ai_scoring"`
	Embedding   EmbeddingConfig `yaml:"embedding"`
	ModelQuota  ModelQuotaConfig `yaml:"model_quota"`
	Sources     []SourceConfig  `yaml:"sources"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type GeminiConfig struct {
	ScoringModel   string `yaml:"scoring_model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type IngestConfig struct {
	// FetchWorkers bounds concurrent source fetches within one run.
	FetchWorkers int `yaml:"fetch_workers"`
	// PerSourceLimit caps how many feed items are taken per source (0 = all).
	PerSourceLimit int `yaml:"per_source_limit"`
	// AdmissionThreshold is the minimum heuristic relevance score for an
	// article to be persisted at all.
	AdmissionThreshold int `yaml:"admission_threshold"`
	// FetchTimeoutSeconds applies per feed request, not per run.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
}

type AIScoringConfig struct {
	BatchSize          int `yaml:"batch_size"`
	CacheTTLDays       int `yaml:"cache_ttl_days"`
	CallTimeoutSeconds int `yaml:"call_timeout_seconds"`
}

type EmbeddingConfig struct {
	BatchSize          int `yaml:"batch_size"`
	MaxInFlight        int `yaml:"max_in_flight"`
	CallTimeoutSeconds int `yaml:"call_timeout_seconds"`
}

// ModelQuotaConfig bounds outbound model calls shared by the AI scoring and
// embedding jobs. Values of 0 or below mean no limit in that direction.
type ModelQuotaConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerDay    int `yaml:"requests_per_day"`
}

// SourceConfig is a single ingestion source seeded into the source registry.
type SourceConfig struct {
	Name       string `yaml:"name"`
	URL        string `yaml:"url"`
	SourceType string `yaml:"source_type"`
	Priority   int    `yaml:"priority"`
	Enabled    bool   `yaml:"enabled"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	var c AppConfig
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		panic(err)
	}

	// env overrides for deploy-time values
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.MongoURI = v
	}
	if v := os.Getenv("MONGO_DB_NAME"); v != "" {
		c.MongoDBName = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiApiKey = v
	}

	applyDefaults(&c)
	config = &c
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func applyDefaults(c *AppConfig) {
	if c.Ingest.FetchWorkers <= 0 {
		c.Ingest.FetchWorkers = 4
	}
	if c.Ingest.AdmissionThreshold <= 0 {
		c.Ingest.AdmissionThreshold = 30
	}
	if c.Ingest.FetchTimeoutSeconds <= 0 {
		c.Ingest.FetchTimeoutSeconds = 20
	}
	if c.AIScoring.BatchSize <= 0 {
		c.AIScoring.BatchSize = 10
	}
	if c.AIScoring.CacheTTLDays <= 0 {
		c.AIScoring.CacheTTLDays = 7
	}
	if c.AIScoring.CallTimeoutSeconds <= 0 {
		c.AIScoring.CallTimeoutSeconds = 60
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 20
	}
	if c.Embedding.MaxInFlight <= 0 {
		c.Embedding.MaxInFlight = 2
	}
	if c.Embedding.CallTimeoutSeconds <= 0 {
		c.Embedding.CallTimeoutSeconds = 30
	}
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
