// Package ingestconfig loads and validates the ingestion pipeline's
// configuration: input/artifact locations, extraction and chunking
// options, embeddings/vector-store provider selection, and concurrency
// limits. Layered via viper: defaults set in code, a TOML file located by
// the standard search order, then environment overrides, then explicit
// flags bound by the CLI.
package ingestconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// ObjectStoreConnection carries the S3-compatible connection fields shared
// by the input and artifacts object-store blocks. Container is the bucket
// name; the field keeps the spec's vendor-agnostic "container" name from
// its Azure Blob ancestry even though the wired backend is S3 (§11).
type ObjectStoreConnection struct {
	Container    string `mapstructure:"container"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"` // non-empty selects an S3-compatible endpoint (e.g. MinIO)
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// InputConfig selects how documents are discovered.
type InputConfig struct {
	Mode  string `mapstructure:"mode"` // "local" | "object-store"
	Local struct {
		Glob string `mapstructure:"glob"`
	} `mapstructure:"local"`
	ObjectStore struct {
		ObjectStoreConnection `mapstructure:",squash"`
		Prefix                string `mapstructure:"prefix"`
		Filter                string `mapstructure:"filter"`
	} `mapstructure:"object_store"`
}

// ArtifactsConfig selects where durable artifacts are written. Mode
// defaults to InputConfig.Mode when left empty (decided open question,
// see SPEC_FULL.md §9).
type ArtifactsConfig struct {
	Mode  string `mapstructure:"mode"`
	Local struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"local"`
	ObjectStore struct {
		ObjectStoreConnection `mapstructure:",squash"`
		Prefix                string `mapstructure:"prefix"`
	} `mapstructure:"object_store"`
}

// ExtractionConfig configures the Extractor collaborator.
type ExtractionConfig struct {
	Mode                 string `mapstructure:"mode"` // azure_di | markitdown | hybrid | text
	MaxPageConcurrency   int    `mapstructure:"max_page_concurrency"`
	PartialPageTolerance bool   `mapstructure:"partial_page_tolerance"`
	AzureDI              struct {
		Endpoint string `mapstructure:"endpoint"`
		APIKey   string `mapstructure:"api_key"`
	} `mapstructure:"azure_di"`
	MarkItDown struct {
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"markitdown"`
}

// MediaConfig configures the MediaDescriber collaborator.
type MediaConfig struct {
	Mode    string `mapstructure:"mode"` // vision | disabled
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Prompt  string `mapstructure:"prompt"`
}

// TableConfig configures the TableRenderer collaborator.
type TableConfig struct {
	Render string `mapstructure:"render"` // plain | markdown | html
}

// ChunkingConfig configures the Chunker's adaptive token budget (§4.2).
type ChunkingConfig struct {
	TargetTokens        int  `mapstructure:"target_tokens"`
	OverlapPercent       int  `mapstructure:"overlap_percent"`
	CrossPageOverlap     bool `mapstructure:"cross_page_overlap"`
	MaxChars             int  `mapstructure:"max_chars"`
	AbsoluteMaxTokens    int  `mapstructure:"absolute_max_tokens"`
}

// EmbeddingsConfig selects and configures the EmbeddingsProvider.
type EmbeddingsConfig struct {
	Provider               string        `mapstructure:"provider"` // ollama | openai | lmstudio | gemini
	BaseURL                string        `mapstructure:"base_url"`
	APIKey                 string        `mapstructure:"api_key"`
	Model                  string        `mapstructure:"model"`
	Dimensions             int           `mapstructure:"dimensions"`
	MaxSeqLength           int           `mapstructure:"max_seq_length"`
	Timeout                time.Duration `mapstructure:"timeout"`
	IntegratedVectorization bool         `mapstructure:"integrated_vectorization"`
	MaxConcurrency         int           `mapstructure:"max_concurrency"`
}

// VectorStoreConfig selects and configures the VectorStore.
type VectorStoreConfig struct {
	Provider        string `mapstructure:"provider"` // sqlite | qdrant
	UploadBatchSize int    `mapstructure:"upload_batch_size"`
	SQLite          struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`
	Qdrant struct {
		Host       string `mapstructure:"host"`
		Port       int    `mapstructure:"port"`
		APIKey     string `mapstructure:"api_key"`
		Collection string `mapstructure:"collection"`
		UseTLS     bool   `mapstructure:"use_tls"`
	} `mapstructure:"qdrant"`
}

// ActionConfig selects the document-action mode (§4.1).
type ActionConfig struct {
	DocumentAction   string `mapstructure:"document_action"` // add | remove | remove_all
	CleanupArtifacts bool   `mapstructure:"cleanup_artifacts"`
}

// PerformanceConfig sizes the concurrency hierarchy (§5).
type PerformanceConfig struct {
	MaxWorkers          int `mapstructure:"max_workers"`           // S_doc
	MaxPageConcurrency  int `mapstructure:"max_page_concurrency"`  // S_page
	MaxConcurrencyEmbed int `mapstructure:"max_concurrency_embed"` // S_embed
}

// Config is the root configuration for one pipeline run.
type Config struct {
	Input       InputConfig       `mapstructure:"input"`
	Artifacts   ArtifactsConfig   `mapstructure:"artifacts"`
	Extraction  ExtractionConfig  `mapstructure:"extraction"`
	Media       MediaConfig       `mapstructure:"media_describer"`
	Table       TableConfig       `mapstructure:"table"`
	Chunking    ChunkingConfig    `mapstructure:"chunking"`
	Embeddings  EmbeddingsConfig  `mapstructure:"embeddings"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	Action      ActionConfig      `mapstructure:"action"`
	Performance PerformanceConfig `mapstructure:"performance"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.mode", "local")
	v.SetDefault("input.local.glob", "*")

	v.SetDefault("artifacts.local.dir", "./artifacts")

	v.SetDefault("extraction.mode", "text")
	v.SetDefault("extraction.max_page_concurrency", 10)
	v.SetDefault("extraction.partial_page_tolerance", true)

	v.SetDefault("media_describer.mode", "disabled")
	v.SetDefault("table.render", "markdown")

	v.SetDefault("chunking.target_tokens", 500)
	v.SetDefault("chunking.overlap_percent", 10)
	v.SetDefault("chunking.cross_page_overlap", true)
	v.SetDefault("chunking.max_chars", 2000)

	v.SetDefault("embeddings.provider", "ollama")
	v.SetDefault("embeddings.timeout", 30*time.Second)
	v.SetDefault("embeddings.integrated_vectorization", false)
	v.SetDefault("embeddings.max_concurrency", 10)

	v.SetDefault("vector_store.provider", "sqlite")
	v.SetDefault("vector_store.upload_batch_size", 1000)
	v.SetDefault("vector_store.sqlite.path", "./docingest.db")
	v.SetDefault("vector_store.qdrant.host", "localhost")
	v.SetDefault("vector_store.qdrant.port", 6334)
	v.SetDefault("vector_store.qdrant.collection", "docingest")

	v.SetDefault("action.document_action", "add")
	v.SetDefault("action.cleanup_artifacts", false)

	v.SetDefault("performance.max_workers", 4)
	v.SetDefault("performance.max_page_concurrency", 10)
	v.SetDefault("performance.max_concurrency_embed", 10)
}

func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("DOCINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("embeddings.api_key", "DOCINGEST_EMBEDDINGS_API_KEY")
	_ = v.BindEnv("vector_store.qdrant.api_key", "DOCINGEST_QDRANT_API_KEY")
}

// Load reads configuration from code defaults, then the config file
// (configPath if non-empty, otherwise the standard search order:
// ./docingest.toml, then $XDG_CONFIG_HOME/docingest/docingest.toml), then
// environment variables, in ascending precedence, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	setDefaults(v)
	bindEnvVars(v)

	switch {
	case configPath != "":
		v.SetConfigFile(configPath)
	default:
		if _, err := os.Stat("docingest.toml"); err == nil {
			v.SetConfigFile("docingest.toml")
		} else if dir, err := os.UserConfigDir(); err == nil {
			v.SetConfigFile(filepath.Join(dir, "docingest", "docingest.toml"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if configPath != "" {
			return nil, ingesterr.NewConfigurationError("file", fmt.Sprintf("failed to read config file %s", configPath), err)
		}
		// No config file found anywhere in the search order: defaults apply.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, ingesterr.NewConfigurationError("unmarshal", "failed to decode configuration", err)
	}

	if cfg.Artifacts.Mode == "" {
		cfg.Artifacts.Mode = cfg.Input.Mode
	}
	if cfg.Artifacts.Mode == "local" && cfg.Artifacts.Local.Dir == "" {
		cfg.Artifacts.Local.Dir = "./artifacts"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency. It is the
// single place ConfigInvalid/CredentialInvalid errors originate; it never
// touches a collaborator.
func (c *Config) Validate() error {
	switch c.Input.Mode {
	case "local":
		if c.Input.Local.Glob == "" {
			return ingesterr.NewConfigurationError("input.local.glob", "glob pattern must not be empty", nil)
		}
	case "object-store":
		if c.Input.ObjectStore.Container == "" {
			return ingesterr.NewConfigurationError("input.object_store.container", "container must not be empty", nil)
		}
	default:
		return ingesterr.NewConfigurationError("input.mode", fmt.Sprintf("unknown input mode %q", c.Input.Mode), nil)
	}

	switch c.Artifacts.Mode {
	case "local":
		// Local.Dir may be empty here (resolved to a default by Load before
		// Validate runs); an empty dir is not itself invalid configuration.
	case "object-store":
		if c.Artifacts.ObjectStore.Container == "" {
			return ingesterr.NewConfigurationError("artifacts.object_store.container", "container must not be empty", nil)
		}
	default:
		return ingesterr.NewConfigurationError("artifacts.mode", fmt.Sprintf("unknown artifacts mode %q", c.Artifacts.Mode), nil)
	}

	switch c.Extraction.Mode {
	case "azure_di", "markitdown", "hybrid", "text":
	default:
		return ingesterr.NewConfigurationError("extraction.mode", fmt.Sprintf("unknown extractor mode %q", c.Extraction.Mode), nil)
	}

	switch c.Media.Mode {
	case "vision", "disabled":
	default:
		return ingesterr.NewConfigurationError("media_describer.mode", fmt.Sprintf("unknown media describer mode %q", c.Media.Mode), nil)
	}

	switch c.Table.Render {
	case "plain", "markdown", "html":
	default:
		return ingesterr.NewConfigurationError("table.render", fmt.Sprintf("unknown table render mode %q", c.Table.Render), nil)
	}

	if c.Chunking.TargetTokens <= 0 {
		return ingesterr.NewConfigurationError("chunking.target_tokens", "must be positive", nil)
	}
	if c.Chunking.OverlapPercent < 0 || c.Chunking.OverlapPercent >= 100 {
		return ingesterr.NewConfigurationError("chunking.overlap_percent", "must be in [0, 100)", nil)
	}

	switch c.Embeddings.Provider {
	case "ollama", "openai", "lmstudio", "gemini":
	default:
		return ingesterr.NewConfigurationError("embeddings.provider", fmt.Sprintf("unknown embeddings provider %q", c.Embeddings.Provider), nil)
	}
	if c.Embeddings.Provider == "openai" && c.Embeddings.APIKey == "" {
		return ingesterr.NewConfigurationError("embeddings.api_key", "openai provider requires an api key", nil)
	}
	if c.Embeddings.Provider == "gemini" && c.Embeddings.APIKey == "" {
		return ingesterr.NewConfigurationError("embeddings.api_key", "gemini provider requires an api key", nil)
	}

	switch c.VectorStore.Provider {
	case "sqlite", "qdrant":
	default:
		return ingesterr.NewConfigurationError("vector_store.provider", fmt.Sprintf("unknown vector store provider %q", c.VectorStore.Provider), nil)
	}
	if c.VectorStore.UploadBatchSize <= 0 || c.VectorStore.UploadBatchSize > 1000 {
		return ingesterr.NewConfigurationError("vector_store.upload_batch_size", "must be in (0, 1000]", nil)
	}
	if c.Embeddings.IntegratedVectorization && c.VectorStore.Provider != "qdrant" {
		return ingesterr.NewConfigurationError("embeddings.integrated_vectorization", "only the qdrant vector store supports server-side embedding", nil)
	}

	switch c.Action.DocumentAction {
	case "add", "remove", "remove_all":
	default:
		return ingesterr.NewConfigurationError("action.document_action", fmt.Sprintf("unknown document action %q", c.Action.DocumentAction), nil)
	}

	if c.Performance.MaxWorkers <= 0 {
		return ingesterr.NewConfigurationError("performance.max_workers", "must be positive", nil)
	}
	if c.Performance.MaxPageConcurrency <= 0 {
		return ingesterr.NewConfigurationError("performance.max_page_concurrency", "must be positive", nil)
	}
	if c.Performance.MaxConcurrencyEmbed <= 0 {
		return ingesterr.NewConfigurationError("performance.max_concurrency_embed", "must be positive", nil)
	}

	return nil
}
