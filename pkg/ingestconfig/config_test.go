package ingestconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	c := &Config{}
	c.Input.Mode = "local"
	c.Input.Local.Glob = "*.pdf"
	c.Artifacts.Mode = "local"
	c.Extraction.Mode = "text"
	c.Extraction.MaxPageConcurrency = 10
	c.Extraction.PartialPageTolerance = true
	c.Media.Mode = "disabled"
	c.Table.Render = "markdown"
	c.Chunking.TargetTokens = 500
	c.Chunking.OverlapPercent = 10
	c.Chunking.CrossPageOverlap = true
	c.Embeddings.Provider = "ollama"
	c.Embeddings.MaxConcurrency = 10
	c.VectorStore.Provider = "sqlite"
	c.VectorStore.UploadBatchSize = 1000
	c.Action.DocumentAction = "add"
	c.Performance.MaxWorkers = 4
	c.Performance.MaxPageConcurrency = 10
	c.Performance.MaxConcurrencyEmbed = 10
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "unknown input mode", mutate: func(c *Config) { c.Input.Mode = "ftp" }, wantErr: true},
		{name: "empty local glob", mutate: func(c *Config) { c.Input.Local.Glob = "" }, wantErr: true},
		{name: "unknown extractor mode", mutate: func(c *Config) { c.Extraction.Mode = "ocrmypdf" }, wantErr: true},
		{name: "unknown media mode", mutate: func(c *Config) { c.Media.Mode = "always" }, wantErr: true},
		{name: "unknown table render mode", mutate: func(c *Config) { c.Table.Render = "pdf" }, wantErr: true},
		{name: "non-positive target tokens", mutate: func(c *Config) { c.Chunking.TargetTokens = 0 }, wantErr: true},
		{name: "overlap percent at 100", mutate: func(c *Config) { c.Chunking.OverlapPercent = 100 }, wantErr: true},
		{name: "unknown embeddings provider", mutate: func(c *Config) { c.Embeddings.Provider = "bedrock" }, wantErr: true},
		{
			name: "openai provider without api key",
			mutate: func(c *Config) {
				c.Embeddings.Provider = "openai"
				c.Embeddings.APIKey = ""
			},
			wantErr: true,
		},
		{name: "unknown vector store provider", mutate: func(c *Config) { c.VectorStore.Provider = "pinecone" }, wantErr: true},
		{name: "upload batch size too large", mutate: func(c *Config) { c.VectorStore.UploadBatchSize = 5000 }, wantErr: true},
		{
			name: "integrated vectorization on sqlite",
			mutate: func(c *Config) {
				c.Embeddings.IntegratedVectorization = true
				c.VectorStore.Provider = "sqlite"
			},
			wantErr: true,
		},
		{name: "unknown document action", mutate: func(c *Config) { c.Action.DocumentAction = "archive" }, wantErr: true},
		{name: "non-positive max workers", mutate: func(c *Config) { c.Performance.MaxWorkers = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_ArtifactsModeDefaultsToInputMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docingest.toml")
	require.NoError(t, os.WriteFile(path, []byte("[input]\nmode = \"local\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Input.Mode, cfg.Artifacts.Mode)
}
