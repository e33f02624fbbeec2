package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the pipeline cannot run
// with. The TMDB API key is validated separately by RequireTMDB so that
// commands that never touch the resolver still work.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if c.Matching.AcceptThreshold <= 0 || c.Matching.AcceptThreshold > 1 {
		problems = append(problems, "matching.accept_threshold must be in (0, 1]")
	}
	if c.Matching.TieMargin < 0 || c.Matching.TieMargin >= 1 {
		problems = append(problems, "matching.tie_margin must be in [0, 1)")
	}
	if c.Matching.TieMargin >= c.Matching.AcceptThreshold {
		problems = append(problems, "matching.tie_margin must be below matching.accept_threshold")
	}
	if c.Matching.CandidateLimit < 1 || c.Matching.CandidateLimit > 20 {
		problems = append(problems, "matching.candidate_limit must be between 1 and 20")
	}
	if c.Run.Workers < 1 || c.Run.Workers > 64 {
		problems = append(problems, "run.workers must be between 1 and 64")
	}
	if c.Run.BatchLimit < 0 {
		problems = append(problems, "run.batch_limit must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console or json)", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RequireTMDB verifies that the resolver can be constructed.
func (c *Config) RequireTMDB() error {
	if strings.TrimSpace(c.TMDB.APIKey) == "" {
		return errors.New("tmdb.api_key is required; set it in the config file or run `cinelog config init`")
	}
	return nil
}
