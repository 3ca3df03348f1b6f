package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Source.FolderID = "folder-1"
	cfg.Embedding.APIKey = "sk-test"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, SourcePublic, cfg.Source.Kind)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 80, cfg.Extract.MinChars)
	assert.Equal(t, 8, cfg.Ingest.SinceDays)
	assert.Equal(t, 500, cfg.OCR.MinImageWidth)
	assert.Equal(t, 300, cfg.OCR.MinImageHeight)
	assert.Equal(t, 1, cfg.Ingest.Workers)
}

func TestStoreDriver(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, StoreSQLite, cfg.StoreDriver())

	cfg.Store.DatabaseURL = "postgres://localhost/folio"
	assert.Equal(t, StorePostgres, cfg.StoreDriver())

	cfg.Store.Driver = StoreSQLite
	assert.Equal(t, StoreSQLite, cfg.StoreDriver())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing folder", func(c *Config) { c.Source.FolderID = "" }, "source.folder_id"},
		{"unknown source", func(c *Config) { c.Source.Kind = "dropbox" }, "unknown source.kind"},
		{"drive api key missing", func(c *Config) { c.Source.Kind = SourceDrive }, "source.drive.api_key"},
		{"drive adc", func(c *Config) {
			c.Source.Kind = SourceDrive
			c.Source.Drive.Auth = DriveAuthADC
		}, ""},
		{"postgres without url", func(c *Config) { c.Store.Driver = StorePostgres }, "store.database_url"},
		{"openai without key", func(c *Config) { c.Embedding.APIKey = "" }, "embedding.api_key"},
		{"ollama without key", func(c *Config) {
			c.Embedding.Provider = EmbeddingOllama
			c.Embedding.APIKey = ""
		}, ""},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }, "embedding.dimension"},
		{"unknown ocr", func(c *Config) { c.OCR.Engine = "magic" }, "unknown ocr.engine"},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }, "ingest.workers"},
		{"negative min chars", func(c *Config) { c.Extract.MinChars = -1 }, "extract.min_chars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Source.FolderID = ""
	cfg.Embedding.Dimension = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.folder_id")
	assert.Contains(t, err.Error(), "embedding.dimension")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DRIVE_PUBLIC_FOLDER_ID": "public-folder",
		"DATABASE_URL":           "postgres://db/folio",
		"OPENAI_API_KEY":         "sk-env",
		"EMBEDDING_DIM":          "3072",
		"INGEST_SINCE_DAYS":      "3",
		"FOLIO_OCR_ENGINE":       "none",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Defaults()
	require.NoError(t, ApplyEnv(&cfg, lookup))

	assert.Equal(t, "public-folder", cfg.Source.FolderID)
	assert.Equal(t, "postgres://db/folio", cfg.Store.DatabaseURL)
	assert.Equal(t, "sk-env", cfg.Embedding.APIKey)
	assert.Equal(t, 3072, cfg.Embedding.Dimension)
	assert.Equal(t, 3, cfg.Ingest.SinceDays)
	assert.Equal(t, OCRNone, cfg.OCR.Engine)
	assert.Equal(t, StorePostgres, cfg.StoreDriver())
}

func TestApplyEnv_InvalidNumber(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "EMBEDDING_DIM" {
			return "wide", true
		}
		return "", false
	}

	cfg := Defaults()
	err := ApplyEnv(&cfg, lookup)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMBEDDING_DIM")
}

func TestLoadFile_Missing(t *testing.T) {
	cfg := Defaults()
	err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"), &cfg)

	assert.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFile_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[source]
kind = "filesystem"
folder_id = "/srv/guidelines"

[embedding]
provider = "ollama"
dimension = 768

[ingest]
workers = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := Defaults()
	require.NoError(t, LoadFile(path, &cfg))

	assert.Equal(t, SourceFilesystem, cfg.Source.Kind)
	assert.Equal(t, "/srv/guidelines", cfg.Source.FolderID)
	assert.Equal(t, EmbeddingOllama, cfg.Embedding.Provider)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	// untouched keys keep defaults
	assert.Equal(t, 80, cfg.Extract.MinChars)
	assert.Equal(t, 64, cfg.Embedding.BatchSize)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[source\nkind="), 0600))

	cfg := Defaults()
	err := LoadFile(path, &cfg)

	assert.Error(t, err)
}

func TestSaveFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := validConfig()
	cfg.Ingest.Workers = 3

	require.NoError(t, SaveFile(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := Defaults()
	require.NoError(t, LoadFile(path, &loaded))
	assert.Equal(t, cfg, loaded)
}
