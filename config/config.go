package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Engine      EngineConfig      `yaml:"engine"`
	Mongo       MongoConfig       `yaml:"mongo"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Suggestions SuggestionsConfig `yaml:"suggestions"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// EngineConfig holds the connection settings for the remote assistant engine.
type EngineConfig struct {
	BaseURL string `yaml:"base_url"`

	// PollInterval is the fixed delay between run status polls.
	// Zero or negative means the default of 1 second.
	PollInterval time.Duration `yaml:"poll_interval"`

	// ToolWaitTimeout bounds how long a run may sit in requires_action
	// waiting for tool outputs. Zero means no cap.
	ToolWaitTimeout time.Duration `yaml:"tool_wait_timeout"`
}

type MongoConfig struct {
	URI    string `yaml:"uri"`
	DBName string `yaml:"db_name"`
}

type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	GroupID string `yaml:"group_id"`
}

// SuggestionsConfig configures follow-up question generation.
type SuggestionsConfig struct {
	GeminiModel string `yaml:"gemini_model"`

	// ContextWindow is how many recent session messages are fed to the
	// model when generating suggestions.
	ContextWindow int `yaml:"context_window"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	var c AppConfig
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		panic(err)
	}

	// secrets and deployment-specific values come from the environment
	if v := os.Getenv("ENGINE_BASE_URL"); v != "" {
		c.Engine.BaseURL = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); v != "" {
		c.Kafka.Brokers = v
	}
	config = &c
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

// EngineAPIKey returns the remote engine credential. It is read from the
// environment only so it never ends up in a marshalled config dump.
func EngineAPIKey() string {
	return os.Getenv("ENGINE_API_KEY")
}

// GeminiAPIKey returns the credential for the suggestions model.
func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
