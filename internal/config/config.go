package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "WEAVER_CONFIG"
	outputPathEnv   = "WEAVER_OUTPUT_PATH"
	logLevelEnv     = "WEAVER_LOG_LEVEL"
	embedderEnv     = "WEAVER_EMBEDDER"
	openAIAPIKeyEnv = "OPENAI_API_KEY"
	ollamaHostEnv   = "OLLAMA_HOST"
)

// Config holds every setting of a pipeline run.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Reducer   ReducerConfig   `yaml:"reducer"`
	Neighbors NeighborsConfig `yaml:"neighbors"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// PipelineConfig lists the run parameters handed to the orchestrator.
type PipelineConfig struct {
	Categories  []string `yaml:"categories"`
	MaxArticles int      `yaml:"maxArticles"`
	OutputPath  string   `yaml:"outputPath"`
	CollectPath string   `yaml:"collectPath"`
}

// WikipediaConfig describes how to reach the MediaWiki action API.
type WikipediaConfig struct {
	Language           string        `yaml:"language"`
	APIURL             string        `yaml:"apiUrl"`
	UserAgent          string        `yaml:"userAgent"`
	MembersPerCategory int           `yaml:"membersPerCategory"`
	Timeout            time.Duration `yaml:"timeout"`
}

// Endpoint resolves the API URL, deriving it from the language when unset.
func (w WikipediaConfig) Endpoint() string {
	if w.APIURL != "" {
		return w.APIURL
	}
	lang := w.Language
	if lang == "" {
		lang = "en"
	}
	return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
}

// EmbedderConfig selects and configures the embedding backend.
type EmbedderConfig struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"baseUrl"`
	APIKey     string        `yaml:"apiKey"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ReducerConfig holds the fixed parameters of the 3D projection.
type ReducerConfig struct {
	Method       string  `yaml:"method"`
	NNeighbors   int     `yaml:"nNeighbors"`
	MinDist      float64 `yaml:"minDist"`
	Spread       float64 `yaml:"spread"`
	Seed         uint64  `yaml:"seed"`
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learningRate"`
}

// NeighborsConfig configures the nearest-neighbor search.
type NeighborsConfig struct {
	Metric string `yaml:"metric"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles the OpenTelemetry SDK tracer provider.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
}

// Load builds the configuration: defaults, then the YAML file at path (or the
// file named by WEAVER_CONFIG), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decode(bytes.NewReader(raw), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates the result.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()
	if err := decode(r, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(outputPathEnv); v != "" {
		c.Pipeline.OutputPath = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(embedderEnv); v != "" {
		c.Embedder.Provider = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" && c.Embedder.APIKey == "" {
		c.Embedder.APIKey = v
	}

	if v := os.Getenv(ollamaHostEnv); v != "" && c.Embedder.Provider == "ollama" && c.Embedder.BaseURL == "" {
		c.Embedder.BaseURL = v
	}
}

// Validate reports every incoherent setting at once.
func (c Config) Validate() error {
	var errs []error

	if len(c.Pipeline.Categories) == 0 {
		errs = append(errs, errors.New("pipeline.categories must not be empty"))
	}
	for i, cat := range c.Pipeline.Categories {
		if strings.TrimSpace(cat) == "" {
			errs = append(errs, fmt.Errorf("pipeline.categories[%d] is blank", i))
		}
	}
	if c.Pipeline.MaxArticles <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.maxArticles must be positive, got %d", c.Pipeline.MaxArticles))
	}
	if c.Pipeline.OutputPath == "" {
		errs = append(errs, errors.New("pipeline.outputPath must not be empty"))
	}
	if c.Wikipedia.MembersPerCategory <= 0 {
		errs = append(errs, fmt.Errorf("wikipedia.membersPerCategory must be positive, got %d", c.Wikipedia.MembersPerCategory))
	}

	switch c.Embedder.Provider {
	case "ollama", "tfidf":
	case "openai":
		if c.Embedder.APIKey == "" {
			errs = append(errs, fmt.Errorf("embedder.apiKey (or %s) is required for the openai provider", openAIAPIKeyEnv))
		}
	default:
		errs = append(errs, fmt.Errorf("embedder.provider %q is invalid; valid values: ollama, openai, tfidf", c.Embedder.Provider))
	}

	switch c.Reducer.Method {
	case "umap", "pca":
	default:
		errs = append(errs, fmt.Errorf("reducer.method %q is invalid; valid values: umap, pca", c.Reducer.Method))
	}
	if c.Reducer.NNeighbors < 2 {
		errs = append(errs, fmt.Errorf("reducer.nNeighbors must be at least 2, got %d", c.Reducer.NNeighbors))
	}
	if c.Reducer.MinDist < 0 || c.Reducer.MinDist > c.Reducer.Spread {
		errs = append(errs, fmt.Errorf("reducer.minDist must be within [0, spread], got %g", c.Reducer.MinDist))
	}
	if c.Reducer.Epochs <= 0 {
		errs = append(errs, fmt.Errorf("reducer.epochs must be positive, got %d", c.Reducer.Epochs))
	}

	if c.Neighbors.Metric != "cosine" {
		errs = append(errs, fmt.Errorf("neighbors.metric %q is invalid; only cosine is supported", c.Neighbors.Metric))
	}

	return errors.Join(errs...)
}

// Default returns the configuration of the original fixed run.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			Categories:  []string{"Astrophysics", "Black_holes", "Galaxies", "Nebulae", "Cosmology", "Supernova", "Exoplanet"},
			MaxArticles: 500,
			OutputPath:  "output/space_data.json",
			CollectPath: "temp_wiki_output.json",
		},
		Wikipedia: WikipediaConfig{
			Language:           "en",
			UserAgent:          "TheWeaver/1.0 (the.weaver.project@example.com)",
			MembersPerCategory: 20,
			Timeout:            20 * time.Second,
		},
		Embedder: EmbedderConfig{
			Provider: "ollama",
			Timeout:  60 * time.Second,
		},
		Reducer: ReducerConfig{
			Method:       "umap",
			NNeighbors:   15,
			MinDist:      0.1,
			Spread:       1.0,
			Seed:         42,
			Epochs:       500,
			LearningRate: 1.0,
		},
		Neighbors: NeighborsConfig{Metric: "cosine"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Tracing:   TracingConfig{Enabled: false, ServiceName: "weaver"},
	}
}
