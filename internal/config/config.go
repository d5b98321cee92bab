package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Task      TaskConfig      `yaml:"task"`
	Mission   MissionConfig   `yaml:"mission"`
	Router    RouterConfig    `yaml:"router"`
	NATS      NATSConfig      `yaml:"nats"`
	Store     StoreConfig     `yaml:"store"`
	Web       WebConfig       `yaml:"web"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Vault     VaultConfig     `yaml:"vault"`
}

// GatewayConfig describes the upstream chat-completions gateway.
type GatewayConfig struct {
	URL               string        `yaml:"url"`
	APIKey            string        `yaml:"api_key"`
	TextModel         string        `yaml:"text_model"`
	ImageModel        string        `yaml:"image_model"`
	Timeout           time.Duration `yaml:"timeout"`
	Attempts          int           `yaml:"attempts"`
	BackoffStep       time.Duration `yaml:"backoff_step"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// TaskConfig controls how the orchestrator reaches the agent task endpoint.
// An empty Endpoint runs tasks in-process.
type TaskConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type MissionConfig struct {
	Stagger         time.Duration `yaml:"stagger"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	ProgressCeiling float64       `yaml:"progress_ceiling"`
	MaxIncrement    float64       `yaml:"max_increment"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
	ActivityLimit   int           `yaml:"activity_limit"`
}

type RouterConfig struct {
	Groups []RouterGroup `yaml:"groups"`
}

// RouterGroup maps mission keywords to the agents that should handle it.
type RouterGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Agents   []string `yaml:"agents"`
}

// NATSConfig configures the embedded broker. Host defaults to loopback;
// bind wider only to follow events from another machine. With the broker
// disabled, dashboards still receive mission events directly.
type NATSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	MaxPayload int32  `yaml:"max_payload"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

// WebConfig configures the dashboard server. TaskRateLimit and TaskBurst
// bound requests per client IP on the agent task endpoint.
type WebConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Port          int     `yaml:"port"`
	CORSOrigin    string  `yaml:"cors_origin"`
	TaskRateLimit float64 `yaml:"task_rate_limit"`
	TaskBurst     int     `yaml:"task_burst"`
}

type TelegramConfig struct {
	Token        string  `yaml:"token"`
	AllowFrom    []int64 `yaml:"allow_from"`
	NotifyChatID int64   `yaml:"notify_chat_id"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type VaultConfig struct {
	Passphrase string `yaml:"passphrase"`
}

// DefaultRouterGroups are the keyword groups used when none are configured.
func DefaultRouterGroups() []RouterGroup {
	return []RouterGroup{
		{Name: "marketing", Keywords: []string{"market", "campaign", "launch"}, Agents: []string{"1", "3", "5", "7"}},
		{Name: "engineering", Keywords: []string{"code", "build", "develop", "app"}, Agents: []string{"1", "2", "7", "8"}},
		{Name: "research", Keywords: []string{"research", "analyze", "data"}, Agents: []string{"1", "4", "6"}},
		{Name: "content", Keywords: []string{"content", "write", "blog"}, Agents: []string{"1", "3", "4"}},
	}
}

func defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			URL:         "https://ai.gateway.lovable.dev/v1/chat/completions",
			TextModel:   "google/gemini-2.5-flash",
			ImageModel:  "google/gemini-2.5-flash-image",
			Timeout:     60 * time.Second,
			Attempts:    3,
			BackoffStep: time.Second,
		},
		Task: TaskConfig{
			Timeout: 3 * time.Minute,
		},
		Mission: MissionConfig{
			Stagger:         300 * time.Millisecond,
			TickInterval:    500 * time.Millisecond,
			ProgressCeiling: 85,
			MaxIncrement:    10,
			ActivityLimit:   20,
		},
		Router: RouterConfig{
			Groups: DefaultRouterGroups(),
		},
		NATS: NATSConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    4222,
		},
		Store: StoreConfig{
			Path: "data/workforce.db",
		},
		Web: WebConfig{
			Enabled:       true,
			Port:          8080,
			CORSOrigin:    "*",
			TaskRateLimit: 5,
			TaskBurst:     10,
		},
		Scheduler: SchedulerConfig{
			PollInterval: 30 * time.Second,
		},
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("WORKFORCE_CONFIG")
	if path == "" {
		path = "config/workforce.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if len(cfg.Router.Groups) == 0 {
		cfg.Router.Groups = DefaultRouterGroups()
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOVABLE_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("WORKFORCE_GATEWAY_URL"); v != "" {
		cfg.Gateway.URL = v
	}
	if v := os.Getenv("WORKFORCE_TASK_ENDPOINT"); v != "" {
		cfg.Task.Endpoint = v
	}
	if v := os.Getenv("WORKFORCE_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("WORKFORCE_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("WORKFORCE_NATS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.NATS.Port = port
		}
	}
	if v := os.Getenv("WORKFORCE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("WORKFORCE_VAULT_PASSPHRASE"); v != "" {
		cfg.Vault.Passphrase = v
	}
}

const secretPrefix = "secret:"

// SecretLookup returns the plaintext of a named vault secret.
type SecretLookup func(name string) (string, error)

// ResolveSecrets replaces "secret:<name>" credential values with their
// plaintext from the vault.
func (c *Config) ResolveSecrets(lookup SecretLookup) error {
	fields := map[string]*string{
		"gateway.api_key": &c.Gateway.APIKey,
		"telegram.token":  &c.Telegram.Token,
	}
	for field, ptr := range fields {
		name, ok := strings.CutPrefix(*ptr, secretPrefix)
		if !ok {
			continue
		}
		if lookup == nil {
			return fmt.Errorf("%s references secret %q but no vault passphrase is set", field, name)
		}
		val, err := lookup(name)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", field, err)
		}
		*ptr = val
	}
	return nil
}
