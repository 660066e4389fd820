// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RetryConfig controls the fetch attempt loop shared by every source.
type RetryConfig struct {
	// MaxRetries is the total number of attempts per HTTP operation (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout bounds a single attempt, not the whole search (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// DelayMin and DelayMax bound the uniform random wait between attempts
	// and between batches (default 2s-4s).
	DelayMin time.Duration `json:"delay_min" yaml:"delay_min" mapstructure:"delay_min"`
	DelayMax time.Duration `json:"delay_max" yaml:"delay_max" mapstructure:"delay_max"`

	// RateLimitBase is multiplied by the attempt number after an HTTP 429
	// (default 10s).
	RateLimitBase time.Duration `json:"rate_limit_base" yaml:"rate_limit_base" mapstructure:"rate_limit_base"`

	// MinInterval is the minimum spacing between requests to one source.
	// Zero disables the limiter.
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval" mapstructure:"min_interval"`
}

// DefaultRetryConfig returns the arXiv-friendly defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		Timeout:       30 * time.Second,
		DelayMin:      2 * time.Second,
		DelayMax:      4 * time.Second,
		RateLimitBase: 10 * time.Second,
		MinInterval:   3 * time.Second,
	}
}

// ArxivConfig holds settings for arXiv searches.
type ArxivConfig struct {
	Retry RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// MaxResults caps the merged result list (default 100).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// BatchSize is the page size per request, capped at 50 (default 20).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// Segments is the number of date slices for bounded searches (default 4).
	Segments int `json:"segments" yaml:"segments" mapstructure:"segments"`

	// SortBy is one of relevance, lastUpdatedDate, submittedDate.
	SortBy string `json:"sort_by" yaml:"sort_by" mapstructure:"sort_by"`

	// SortOrder is ascending or descending.
	SortOrder string `json:"sort_order" yaml:"sort_order" mapstructure:"sort_order"`
}

// DefaultArxivConfig returns the defaults used when no config file is present.
func DefaultArxivConfig() ArxivConfig {
	return ArxivConfig{
		Retry:      DefaultRetryConfig(),
		MaxResults: 100,
		BatchSize:  20,
		Segments:   4,
		SortBy:     "submittedDate",
		SortOrder:  "descending",
	}
}

// ProxyConfig controls the Scholar proxy pool.
type ProxyConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Sources are proxy list URLs. HTML pages are parsed as tables,
	// anything else as one host:port per line.
	Sources []string `json:"sources" yaml:"sources" mapstructure:"sources"`

	// ProbeURL is fetched through a candidate to validate it.
	ProbeURL string `json:"probe_url" yaml:"probe_url" mapstructure:"probe_url"`

	// ProbeTimeout bounds one validation request (default 10s).
	ProbeTimeout time.Duration `json:"probe_timeout" yaml:"probe_timeout" mapstructure:"probe_timeout"`
}

// ScholarConfig holds settings for Google Scholar scraping.
type ScholarConfig struct {
	Retry RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`
	Proxy ProxyConfig `json:"proxy" yaml:"proxy" mapstructure:"proxy"`

	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// BatchSize is the number of results per Scholar page (default 10).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// SaveBatches appends every completed page to BatchFile.
	SaveBatches bool   `json:"save_batches" yaml:"save_batches" mapstructure:"save_batches"`
	BatchFile   string `json:"batch_file" yaml:"batch_file" mapstructure:"batch_file"`
}

// DefaultScholarConfig returns conservative scraping defaults.
func DefaultScholarConfig() ScholarConfig {
	return ScholarConfig{
		Retry: RetryConfig{
			MaxRetries:    5,
			Timeout:       30 * time.Second,
			DelayMin:      3 * time.Second,
			DelayMax:      7 * time.Second,
			RateLimitBase: 10 * time.Second,
		},
		Proxy: ProxyConfig{
			Sources: []string{
				"https://www.sslproxies.org",
				"https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt",
			},
			ProbeURL:     "https://scholar.google.com",
			ProbeTimeout: 10 * time.Second,
		},
		MaxResults: 100,
		BatchSize:  10,
	}
}

// ProjectConfig locates the project database.
type ProjectConfig struct {
	// DBPath is the SQLite file (default ~/.config/gscientist/projects.db).
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`

	// WorkspaceRoot is the parent directory for new project workspaces.
	WorkspaceRoot string `json:"workspace_root" yaml:"workspace_root" mapstructure:"workspace_root"`
}

// AgentConfig holds settings for the chat agent.
type AgentConfig struct {
	// Model is the chat model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey authenticates against the chat API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the API endpoint for compatible gateways.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// SystemMessage primes the conversation.
	SystemMessage string `json:"system_message" yaml:"system_message" mapstructure:"system_message"`
}

// Config groups every section of gscientist.yaml.
type Config struct {
	Arxiv   ArxivConfig   `json:"arxiv" yaml:"arxiv" mapstructure:"arxiv"`
	Scholar ScholarConfig `json:"scholar" yaml:"scholar" mapstructure:"scholar"`
	Project ProjectConfig `json:"project" yaml:"project" mapstructure:"project"`
	Agent   AgentConfig   `json:"agent" yaml:"agent" mapstructure:"agent"`
}
