package config

import (
	"fmt"
	"strconv"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("DRIVE_PUBLIC_FOLDER_ID", &cfg.Source.FolderID)
	str("FOLIO_FOLDER_ID", &cfg.Source.FolderID)
	str("FOLIO_SOURCE_KIND", &cfg.Source.Kind)
	str("FOLIO_DRIVE_AUTH", &cfg.Source.Drive.Auth)
	str("GOOGLE_API_KEY", &cfg.Source.Drive.APIKey)
	str("FOLIO_DRIVE_CREDENTIALS_FILE", &cfg.Source.Drive.CredentialsFile)

	str("DATABASE_URL", &cfg.Store.DatabaseURL)
	str("FOLIO_STORE_DRIVER", &cfg.Store.Driver)
	str("FOLIO_DATA_DIR", &cfg.Store.DataDir)

	str("FOLIO_EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	str("OPENAI_API_KEY", &cfg.Embedding.APIKey)
	str("EMBEDDING_MODEL", &cfg.Embedding.Model)
	str("FOLIO_EMBEDDING_BASE_URL", &cfg.Embedding.BaseURL)

	str("FOLIO_OCR_ENGINE", &cfg.OCR.Engine)
	str("FOLIO_OCR_LANGUAGE", &cfg.OCR.Language)
	str("FOLIO_VISION_CREDENTIALS_FILE", &cfg.OCR.CredentialsFile)

	for key, dst := range map[string]*int{
		"EMBEDDING_DIM":        &cfg.Embedding.Dimension,
		"INGEST_SINCE_DAYS":    &cfg.Ingest.SinceDays,
		"FOLIO_WORKERS":        &cfg.Ingest.Workers,
		"FOLIO_TEXT_MIN_CHARS": &cfg.Extract.MinChars,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}
