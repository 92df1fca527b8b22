// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	APIs          APIsConfig              `mapstructure:"apis"`
	LLM           LLMConfig               `mapstructure:"llm"`
	Pipeline      PipelineConfig          `mapstructure:"pipeline"`
	Memory        MemoryConfig            `mapstructure:"memory"`
	Retrieval     RetrievalConfig         `mapstructure:"retrieval"`
	Rules         RulesConfig             `mapstructure:"rules"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddress string `mapstructure:"http_address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// Configured reports whether any address was supplied.
func (e ElasticsearchConfig) Configured() bool {
	return e.GetURL() != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Catalog pipeline sections ---

// APIsConfig holds endpoints for the model providers.
type APIsConfig struct {
	GenAI struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"genai"`

	Gemini struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"gemini"`
}

// LLMConfig selects the provider and the call policy shared by every resolution unit.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"` // gateway | gemini
	Temperature float64 `mapstructure:"temperature"`
	MaxRetries  int     `mapstructure:"max_retries"`
	Cache       struct {
		Enabled bool `mapstructure:"enabled"`
		TTLDays int  `mapstructure:"ttl_days"`
	} `mapstructure:"cache"`
}

// PipelineConfig controls execution mode, fan-out width and the template layout.
type PipelineConfig struct {
	Mode           string         `mapstructure:"mode"` // local | zeebe
	Concurrency    int            `mapstructure:"concurrency"`
	KickoffTimeout int            `mapstructure:"kickoff_timeout"` // milliseconds
	JobTTL         int            `mapstructure:"job_ttl"`         // milliseconds
	ArtifactTTL    int            `mapstructure:"artifact_ttl"`    // milliseconds
	ProcessID      string         `mapstructure:"process_id"`
	Layout         TemplateLayout `mapstructure:"layout"`
}

// TemplateLayout locates the schema rows inside the template sheet.
type TemplateLayout struct {
	Sheet        string `mapstructure:"sheet"`
	ChunkRow     int    `mapstructure:"chunk_row"`
	GroupRow     int    `mapstructure:"group_row"`
	TechnicalRow int    `mapstructure:"technical_row"`
	DataRow      int    `mapstructure:"data_row"`
	TypeColumn   int    `mapstructure:"type_column"`
}

// MemoryConfig selects the product memory backend.
type MemoryConfig struct {
	Backend string `mapstructure:"backend"` // redis | postgres | memory
	TTLDays int    `mapstructure:"ttl_days"`
}

// RetrievalConfig configures the reference-document lookup.
type RetrievalConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Index          string `mapstructure:"index"`
	Size           int    `mapstructure:"size"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	InitialBackoff int    `mapstructure:"initial_backoff"` // milliseconds
}

// PersonaConfig binds a chunk name to the specialist persona used when filling it.
type PersonaConfig struct {
	Chunk   string `mapstructure:"chunk"`
	Persona string `mapstructure:"persona"`
}

// RulesConfig overrides the built-in business tables. Empty slices keep the defaults.
type RulesConfig struct {
	CriticalFields []string        `mapstructure:"critical_fields"`
	UnitDenylist   []string        `mapstructure:"unit_denylist"`
	Personas       []PersonaConfig `mapstructure:"personas"`
	DefaultPersona string          `mapstructure:"default_persona"`
	WeightUnit     string          `mapstructure:"weight_unit"`
	DimensionUnit  string          `mapstructure:"dimension_unit"`
	DefaultWeight  string          `mapstructure:"default_weight"`
}

// NotificationConfig holds settings for job-completion notifications.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
