package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	DataSource DataSourceConfig `mapstructure:"datasource"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Models     ModelConfig      `mapstructure:"models"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DataSourceConfig struct {
	// Mode selects the connector: auto, memory, file or postgres.
	Mode         string        `mapstructure:"mode" validate:"oneof=auto memory file postgres"`
	StudentsPath string        `mapstructure:"students_path"`
	ContentPath  string        `mapstructure:"content_path"`
	SponsorsPath string        `mapstructure:"sponsors_path"`
	PostgresURL  string        `mapstructure:"postgres_url"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type RedisConfig struct {
	// URL is optional; when empty the engine keeps results in process only.
	URL       string        `mapstructure:"url"`
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

// EngineConfig is the full knob surface of the ranking engine. Every field is
// overridable through environment variables (ENGINE_CONTENT_WEIGHT and so on).
type EngineConfig struct {
	ContentWeight     float64 `mapstructure:"content_weight" validate:"gte=0,lte=1"`
	CollabWeight      float64 `mapstructure:"collab_weight" validate:"gte=0,lte=1"`
	SemanticWeight    float64 `mapstructure:"semantic_weight" validate:"gte=0,lte=1"`
	DiversityStrength float64 `mapstructure:"diversity_strength" validate:"gte=0"`

	TopKCourses  int `mapstructure:"top_k_courses" validate:"gt=0"`
	TopKSponsors int `mapstructure:"top_k_sponsors" validate:"gt=0"`
	TopKStudents int `mapstructure:"top_k_students" validate:"gt=0"`
	TopKTeachers int `mapstructure:"top_k_teachers" validate:"gt=0"`

	// First-stage candidate retrieval over the content vector space.
	UseRetrieval       bool `mapstructure:"use_retrieval"`
	RetrievalNeighbors int  `mapstructure:"retrieval_neighbors" validate:"gt=0"`
	RetrievalPoolSize  int  `mapstructure:"retrieval_pool_size" validate:"gt=0"`

	// Epsilon-greedy exploration; disabled when epsilon is 0.
	BanditEpsilon  float64 `mapstructure:"bandit_epsilon" validate:"gte=0,lte=1"`
	BanditExploreK int     `mapstructure:"bandit_explore_k" validate:"gte=0"`
}

type ModelConfig struct {
	// StorePath is the bbolt file holding fitted model state; empty disables
	// cross-restart persistence.
	StorePath string              `mapstructure:"store_path"`
	Embedding ModelInstanceConfig `mapstructure:"embedding"`
}

type ModelInstanceConfig struct {
	ModelPath  string `mapstructure:"model_path"`
	Dimensions int    `mapstructure:"dimensions" validate:"gt=0"`
}

type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks structural constraints on the decoded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Default returns the built-in configuration without touching files or the
// environment. Used by tests and embedded callers.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8080", Mode: "development"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		DataSource: DataSourceConfig{
			Mode:         "auto",
			StudentsPath: "students.csv",
			ContentPath:  "content.csv",
			SponsorsPath: "sponsors.csv",
			QueryTimeout: 5 * time.Second,
		},
		Redis:  RedisConfig{ResultTTL: 15 * time.Minute},
		Engine: DefaultEngine(),
		Models: ModelConfig{
			StorePath: "models.db",
			Embedding: ModelInstanceConfig{
				ModelPath:  "./models/all-MiniLM-L6-v2.onnx",
				Dimensions: 384,
			},
		},
		Scheduler: SchedulerConfig{Interval: 6 * time.Hour},
	}
}

// DefaultEngine returns the default ranking knobs.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		ContentWeight:      0.6,
		CollabWeight:       0.35,
		SemanticWeight:     0.05,
		DiversityStrength:  0.05,
		TopKCourses:        10,
		TopKSponsors:       10,
		TopKStudents:       5,
		TopKTeachers:       5,
		UseRetrieval:       true,
		RetrievalNeighbors: 200,
		RetrievalPoolSize:  150,
		BanditEpsilon:      0.0,
		BanditExploreK:     3,
	}
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("datasource.mode", "auto")
	viper.SetDefault("datasource.students_path", "students.csv")
	viper.SetDefault("datasource.content_path", "content.csv")
	viper.SetDefault("datasource.sponsors_path", "sponsors.csv")
	viper.SetDefault("datasource.query_timeout", "5s")

	viper.SetDefault("redis.url", "")
	viper.SetDefault("redis.result_ttl", "15m")

	// Engine defaults mirror the production weighting: content-heavy with a
	// small semantic contribution.
	viper.SetDefault("engine.content_weight", 0.6)
	viper.SetDefault("engine.collab_weight", 0.35)
	viper.SetDefault("engine.semantic_weight", 0.05)
	viper.SetDefault("engine.diversity_strength", 0.05)
	viper.SetDefault("engine.top_k_courses", 10)
	viper.SetDefault("engine.top_k_sponsors", 10)
	viper.SetDefault("engine.top_k_students", 5)
	viper.SetDefault("engine.top_k_teachers", 5)
	viper.SetDefault("engine.use_retrieval", true)
	viper.SetDefault("engine.retrieval_neighbors", 200)
	viper.SetDefault("engine.retrieval_pool_size", 150)
	viper.SetDefault("engine.bandit_epsilon", 0.0)
	viper.SetDefault("engine.bandit_explore_k", 3)

	viper.SetDefault("models.store_path", "models.db")
	viper.SetDefault("models.embedding.model_path", "./models/all-MiniLM-L6-v2.onnx")
	viper.SetDefault("models.embedding.dimensions", 384)

	viper.SetDefault("scheduler.interval", "6h")
}
