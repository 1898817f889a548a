// Package config holds the configuration for the retrieval and
// context-assembly engine.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/docleaai/doclea-mcp-sub003/pkg/version"
)

// Config holds the configuration for the ctxeng server.
type Config struct {
	HTTP     bool   `mapstructure:"http"`
	HTTPAddr string `mapstructure:"http-addr"`

	// Relational + code/GraphRAG graph storage (modernc.org/sqlite).
	DbPath string `mapstructure:"db-path"`

	// VectorBackend selects which VectorStore adapter is constructed at
	// startup: "surrealdb" (default), "qdrant" or "pgvector".
	VectorBackend string `mapstructure:"vector-backend"`

	SurrealDBURL       string `mapstructure:"surrealdb-url"`
	SurrealDBUser      string `mapstructure:"surrealdb-user"`
	SurrealDBPass      string `mapstructure:"surrealdb-pass"`
	SurrealDBNamespace string `mapstructure:"surrealdb-namespace"`
	SurrealDBDatabase  string `mapstructure:"surrealdb-database"`

	QdrantURL string `mapstructure:"qdrant-url"`
	PgDSN     string `mapstructure:"pg-dsn"`

	// Ollama configuration
	OllamaURL   string `mapstructure:"ollama-url"`
	OllamaModel string `mapstructure:"ollama-model"`
	// OpenAI configuration
	OpenAIKey   string `mapstructure:"openai-key"`
	OpenAIURL   string `mapstructure:"openai-url"`
	OpenAIModel string `mapstructure:"openai-model"`
	// Code-specific embedding model configuration. Allows using a
	// specialized code embedding model (e.g. CodeRankEmbed,
	// jina-embeddings-v2-base-code) for the incremental scanner while a
	// different model serves retrieval's text/memory sources.
	CodeOllamaModel string `mapstructure:"code-ollama-model"`
	CodeOpenAIModel string `mapstructure:"code-openai-model"`

	// Result cache (C13) sizing.
	CacheMaxEntries int `mapstructure:"cache-max-entries"`
	CacheTTLMs      int `mapstructure:"cache-ttl-ms"`

	LogFile string `mapstructure:"log"`
	// When true, disables all logging output to stdout/stderr.
	// Logs will only be written to the configured log file (if any).
	DisableOutputLog bool `mapstructure:"disable-output-log"`
	// Code monitoring configuration
	// When true, disables automatic code file watching for projects
	DisableCodeWatch bool `mapstructure:"disable-code-watch"`
}

// Load loads the configuration from CLI flags and environment variables.
func Load() (*Config, error) {
	// Define flags
	// To add a new CLI flag:
	// 1) Register it here with pflag (or pflag.String/PBool/etc)
	// 2) Call pflag.Parse() (done below)
	// 3) Bind pflags to viper via v.BindPFlags(pflag.CommandLine)
	// 4) Read the value from the returned Config or via v.GetXXX
	// Note: flags that should cause the process to exit early (like --version)
	// can be handled immediately after parsing, before continuing with config
	// initialization.

	pflag.String("config", "", "Path to YAML configuration file")

	pflag.Bool("http", true, "Enable HTTP JSON API transport")
	pflag.String("http-addr", ":8080", "Address to bind HTTP transport (host:port), can also be set via CTXENG_HTTP_ADDR")

	pflag.String("db-path", "./ctxeng.db", "Path to the sqlite code graph/GraphRAG/cache database")

	pflag.String("vector-backend", "surrealdb", "Vector store backend: surrealdb, qdrant or pgvector")
	pflag.String("surrealdb-url", "", "URL for the SurrealDB instance (used when vector-backend=surrealdb)")
	pflag.String("surrealdb-user", "root", "Username for SurrealDB")
	pflag.String("surrealdb-pass", "root", "Password for SurrealDB")
	pflag.String("surrealdb-namespace", "test", "Namespace for SurrealDB")
	pflag.String("surrealdb-database", "test", "Database for SurrealDB")
	pflag.String("qdrant-url", "", "Address for the Qdrant instance (used when vector-backend=qdrant)")
	pflag.String("pg-dsn", "", "Postgres DSN for pgvector (used when vector-backend=pgvector)")

	pflag.String("ollama-url", "http://localhost:11434", "URL for the Ollama server")
	pflag.String("ollama-model", "", "Ollama model to use for embeddings")
	pflag.String("openai-key", "", "OpenAI API key")
	pflag.String("openai-url", "https://api.openai.com/v1", "OpenAI base URL")
	pflag.String("openai-model", "text-embedding-3-large", "OpenAI model to use for embeddings")
	// Code-specific embedding model flags (for the incremental scanner)
	pflag.String("code-ollama-model", "", "Ollama model to use for code embeddings (e.g., jina/jina-embeddings-v2-base-code)")
	pflag.String("code-openai-model", "", "OpenAI model to use for code embeddings")

	pflag.Int("cache-max-entries", 1000, "Maximum number of entries in the retrieval result cache")
	pflag.Int("cache-ttl-ms", 60000, "Retrieval result cache entry TTL in milliseconds")

	pflag.String("log", "", "Path to the log file (logs will be written to both stdout and file)")
	pflag.Bool("disable-output-log", false, "Disable logging to stdout/stderr; only write to log file if configured")
	pflag.Bool("disable-code-watch", false, "Disable automatic file watching for scanned projects")
	// Version flag is handled here so config package can manage early-exit flags
	// Also register a version flag with the standard library's flag set so
	// packages that use the stdlib flag package (or call flag.Parse)
	// won't error when users pass --version/-v to this binary.
	flag.Bool("version", false, "Print version and exit")

	// Make any flags registered with the stdlib visible to pflag so a single
	// unified parse will work for both kinds of flags.
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	// Do not re-register the "version" flag with pflag here — it is
	// registered via the standard library flag set above and copied into
	// pflag by AddGoFlagSet. Registering it twice causes a "flag redefined"
	// panic when parsing.
	pflag.Parse()

	// Handle early-exit flags (version) before binding to viper
	if ver := pflag.Lookup("version"); ver != nil && ver.Value.String() == "true" {
		fmt.Println(version.Describe())
		os.Exit(0)
	}

	// Initialize viper
	v := viper.New()

	// Read YAML config file if provided via --config flag
	configPath := pflag.Lookup("config").Value.String()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		// No --config flag provided, try to find config.yaml in standard locations
		configFound := false

		if homeDir, err := os.UserHomeDir(); err == nil {
			var standardConfigPath string

			// Use OS-specific standard location
			if runtime.GOOS == "darwin" {
				// macOS: ~/Library/Application Support/ctxeng/config.yaml
				standardConfigPath = filepath.Join(homeDir, "Library", "Application Support", "ctxeng", "config.yaml")
			} else {
				// Linux/Unix: ~/.config/ctxeng/config.yaml
				standardConfigPath = filepath.Join(homeDir, ".config", "ctxeng", "config.yaml")
			}

			if _, err := os.Stat(standardConfigPath); err == nil {
				v.SetConfigFile(standardConfigPath)
				if err := v.ReadInConfig(); err == nil {
					configFound = true
					slog.Info("Using configuration file from standard location", "path", standardConfigPath)
				}
			}
		}

		// If no config file found in standard locations, continue without it
		// (environment variables and defaults will be used)
		if !configFound {
			slog.Info("No configuration file found, using environment variables and defaults")
		}
	}

	// Bind flags to viper
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, fmt.Errorf("failed to bind pflags: %w", err)
	}

	// Configure viper to read environment variables
	v.SetEnvPrefix("CTXENG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Unmarshal the configuration
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Validate that at least one embedder is configured
	if c.OllamaModel == "" && c.OpenAIKey == "" {
		return errors.New("at least one embedder (Ollama or OpenAI) must be configured")
	}

	// Validate relational/graph database path
	if c.DbPath == "" {
		return errors.New("a sqlite database path must be provided")
	}

	// Validate the selected vector backend has the settings it needs
	switch c.GetVectorBackend() {
	case "surrealdb":
		if c.SurrealDBURL == "" {
			return errors.New("surrealdb-url is required when vector-backend=surrealdb")
		}
	case "qdrant":
		if c.QdrantURL == "" {
			return errors.New("qdrant-url is required when vector-backend=qdrant")
		}
	case "pgvector":
		if c.PgDSN == "" {
			return errors.New("pg-dsn is required when vector-backend=pgvector")
		}
	default:
		return fmt.Errorf("unknown vector-backend %q: must be surrealdb, qdrant or pgvector", c.VectorBackend)
	}

	return nil
}

// GetVectorBackend returns the configured vector backend, defaulting to
// surrealdb when unset.
func (c *Config) GetVectorBackend() string {
	if c.VectorBackend == "" {
		return "surrealdb"
	}
	return c.VectorBackend
}

// GetOllamaURL returns the Ollama server URL.
func (c *Config) GetOllamaURL() string {
	return c.OllamaURL
}

// GetOllamaModel returns the Ollama model name.
func (c *Config) GetOllamaModel() string {
	return c.OllamaModel
}

// GetOpenAIKey returns the OpenAI API key.
func (c *Config) GetOpenAIKey() string {
	return c.OpenAIKey
}

// GetOpenAIURL returns the OpenAI base URL.
func (c *Config) GetOpenAIURL() string {
	return c.OpenAIURL
}

// GetOpenAIModel returns the OpenAI model name.
func (c *Config) GetOpenAIModel() string {
	return c.OpenAIModel
}

// GetCodeOllamaModel returns the Ollama model for code embeddings.
// If not set, returns the default Ollama model.
func (c *Config) GetCodeOllamaModel() string {
	if c.CodeOllamaModel != "" {
		return c.CodeOllamaModel
	}
	return c.OllamaModel
}

// GetCodeOpenAIModel returns the OpenAI model for code embeddings.
// If not set, returns the default OpenAI model.
func (c *Config) GetCodeOpenAIModel() string {
	if c.CodeOpenAIModel != "" {
		return c.CodeOpenAIModel
	}
	return c.OpenAIModel
}

// HasCodeSpecificEmbedder returns true if a code-specific embedding model is configured.
func (c *Config) HasCodeSpecificEmbedder() bool {
	return c.CodeOllamaModel != "" || c.CodeOpenAIModel != ""
}

// GetCodeEmbedderModel returns the model identifier retrieval's C13 cache
// key should use for code-symbol embeddings, distinguishing it from the
// text/memory embedder when a code-specific model is configured.
func (c *Config) GetCodeEmbedderModel() string {
	if c.CodeOllamaModel != "" {
		return c.CodeOllamaModel
	}
	if c.CodeOpenAIModel != "" {
		return c.CodeOpenAIModel
	}
	if c.OllamaModel != "" {
		return c.OllamaModel
	}
	return c.OpenAIModel
}

// GetSurrealDBNamespace returns the SurrealDB namespace.
func (c *Config) GetSurrealDBNamespace() string {
	if c.SurrealDBNamespace == "" {
		return "test"
	}
	return c.SurrealDBNamespace
}

// GetSurrealDBDatabase returns the SurrealDB database.
func (c *Config) GetSurrealDBDatabase() string {
	if c.SurrealDBDatabase == "" {
		return "test"
	}
	return c.SurrealDBDatabase
}

// GetCacheMaxEntries returns the retrieval result cache's maximum entry count.
func (c *Config) GetCacheMaxEntries() int {
	if c.CacheMaxEntries <= 0 {
		return 1000
	}
	return c.CacheMaxEntries
}

// GetCacheTTLMs returns the retrieval result cache's entry TTL in milliseconds.
func (c *Config) GetCacheTTLMs() int {
	if c.CacheTTLMs <= 0 {
		return 60000
	}
	return c.CacheTTLMs
}

// Getenv reads an environment variable or returns a default value.
func Getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SetupLogging configures slog output.
//
// Important: when running as a pipe-driven collaborator, stdout may be
// reserved for a line-oriented protocol. Console logs default to stderr
// whenever no HTTP transport is enabled.
func (c *Config) SetupLogging() error {
	var writers []io.Writer

	// Console logging (stdout/stderr)
	if !c.DisableOutputLog {
		if c.HTTP {
			writers = append(writers, os.Stdout)
		} else {
			writers = append(writers, os.Stderr)
		}
	}

	// If log file is specified, also write to file
	if c.LogFile != "" {
		logFile, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", c.LogFile, err)
		}
		writers = append(writers, logFile)
	}

	// If nothing is configured (disable-output-log=true and no file), discard logs.
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	// Create a multi-writer that writes to all specified destinations
	multiWriter := io.MultiWriter(writers...)

	// Create a text handler with the multi-writer
	handler := slog.NewTextHandler(multiWriter, &slog.HandlerOptions{
		Level:     slog.LevelInfo, // Change this to desired log level
		AddSource: false,
	})

	// Set the default logger
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return nil
}
