package config

import "fmt"

// Validate checks the configuration and fails fast on the first problem.
// Sentinel errors let callers distinguish causes with errors.Is.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be between 0 and 2)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 65536 {
		return fmt.Errorf("%w: %d (must be between 1 and 65536)", ErrInvalidMaxTokens, c.MaxTokens)
	}

	switch c.Storage.Backend {
	case BackendLocal:
		// data_dir always has a default
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("%w: set DATABASE_URL for the postgres backend", ErrMissingDatabaseURL)
		}
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)",
			ErrInvalidBackend, c.Storage.Backend, BackendLocal, BackendPostgres)
	}

	ch := c.Chunking
	if ch.MaxChunkSize <= 0 || ch.MinChunkSize <= 0 {
		return fmt.Errorf("%w: chunk sizes must be positive", ErrInvalidChunking)
	}
	if ch.MinChunkSize >= ch.MaxChunkSize {
		return fmt.Errorf("%w: min_chunk_size %d must be below max_chunk_size %d",
			ErrInvalidChunking, ch.MinChunkSize, ch.MaxChunkSize)
	}
	if ch.OverlapSize < 0 || ch.OverlapSize >= ch.MaxChunkSize {
		return fmt.Errorf("%w: overlap_size %d must be non-negative and below max_chunk_size %d",
			ErrInvalidChunking, ch.OverlapSize, ch.MaxChunkSize)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDimensions, c.Embedding.Dimensions)
	}

	r := c.Retrieval
	if r.TopK < 1 || r.TopK > 100 {
		return fmt.Errorf("%w: top_k %d (must be between 1 and 100)", ErrInvalidRetrieval, r.TopK)
	}
	if r.MatchThreshold < 0 || r.MatchThreshold >= 1 {
		return fmt.Errorf("%w: match_threshold %v (must be in [0, 1))", ErrInvalidRetrieval, r.MatchThreshold)
	}

	return nil
}
