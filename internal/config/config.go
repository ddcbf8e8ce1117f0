package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Graph     GraphConfig     `yaml:"graph"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Presenter PresenterConfig `yaml:"presenter"`
	Addin     AddinConfig     `yaml:"addin"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// PublicOrigin is the scheme://host[:port] browsers use to reach the
	// server. Relay messages are only delivered to pages on this origin.
	PublicOrigin string `yaml:"public_origin"`
}

type TransportConfig struct {
	// Mode is "http" or "stdio". In stdio mode the MCP server speaks over
	// stdin/stdout while the HTTP pages and sockets keep running.
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Actor   string `yaml:"actor"`
}

type GraphConfig struct {
	BaseURL       string   `yaml:"base_url"`
	ClientID      string   `yaml:"client_id"`
	ClientSecret  string   `yaml:"client_secret"`
	Tenant        string   `yaml:"tenant"`
	RedirectURL   string   `yaml:"redirect_url"`
	Scopes        []string `yaml:"scopes"`
	DefaultFolder string   `yaml:"default_folder"`
}

type ViewerConfig struct {
	EmbedEndpoint string `yaml:"embed_endpoint"`
}

type PresenterConfig struct {
	DefaultTotalSlides int           `yaml:"default_total_slides"`
	PollInterval       time.Duration `yaml:"poll_interval"`
}

type AddinConfig struct {
	ExpectedPlatform string `yaml:"expected_platform"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			PublicOrigin: "http://localhost:8080",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		DB: DBConfig{
			Path: "lectern.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			Actor: "Admin",
		},
		Graph: GraphConfig{
			BaseURL:       "https://graph.microsoft.com/v1.0",
			Tenant:        "consumers",
			Scopes:        []string{"User.Read", "Files.ReadWrite", "Files.ReadWrite.All", "offline_access"},
			DefaultFolder: "Presentations",
		},
		Viewer: ViewerConfig{
			EmbedEndpoint: "https://view.officeapps.live.com/op/embed.aspx",
		},
		Presenter: PresenterConfig{
			DefaultTotalSlides: 10,
			PollInterval:       time.Second,
		},
		Addin: AddinConfig{
			ExpectedPlatform: "Office",
		},
	}
}

// Load reads configuration from an optional .env file, an optional YAML file
// and environment variables, in that order of precedence (last wins).
func Load() (Config, error) {
	if err := loadDotEnv(os.Getenv("LECTERN_DOTENV_PATH")); err != nil {
		return Config{}, err
	}

	cfg := Default()

	if path := os.Getenv("LECTERN_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg.Server.PublicOrigin = strings.TrimRight(cfg.Server.PublicOrigin, "/")
	cfg.Graph.BaseURL = strings.TrimRight(cfg.Graph.BaseURL, "/")
	return cfg, nil
}

func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load dotenv %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("LECTERN_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("LECTERN_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid LECTERN_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if origin := os.Getenv("LECTERN_PUBLIC_ORIGIN"); origin != "" {
		cfg.Server.PublicOrigin = origin
	}
	if mode := os.Getenv("LECTERN_TRANSPORT"); mode != "" {
		if mode != "http" && mode != "stdio" {
			return fmt.Errorf("invalid LECTERN_TRANSPORT: %q", mode)
		}
		cfg.Transport.Mode = mode
	}
	if dbPath := os.Getenv("LECTERN_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("LECTERN_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if enabled := os.Getenv("LECTERN_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid LECTERN_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if actor := os.Getenv("LECTERN_AUDIT_ACTOR"); actor != "" {
		cfg.Auth.Actor = actor
	}
	if base := os.Getenv("LECTERN_GRAPH_BASE_URL"); base != "" {
		cfg.Graph.BaseURL = base
	}
	if id := os.Getenv("LECTERN_GRAPH_CLIENT_ID"); id != "" {
		cfg.Graph.ClientID = id
	}
	if secret := os.Getenv("LECTERN_GRAPH_CLIENT_SECRET"); secret != "" {
		cfg.Graph.ClientSecret = secret
	}
	if tenant := os.Getenv("LECTERN_GRAPH_TENANT"); tenant != "" {
		cfg.Graph.Tenant = tenant
	}
	if redirect := os.Getenv("LECTERN_GRAPH_REDIRECT_URL"); redirect != "" {
		cfg.Graph.RedirectURL = redirect
	}
	if scopes := os.Getenv("LECTERN_GRAPH_SCOPES"); scopes != "" {
		cfg.Graph.Scopes = strings.Fields(strings.ReplaceAll(scopes, ",", " "))
	}
	if folder := os.Getenv("LECTERN_GRAPH_FOLDER"); folder != "" {
		cfg.Graph.DefaultFolder = folder
	}
	if endpoint := os.Getenv("LECTERN_VIEWER_ENDPOINT"); endpoint != "" {
		cfg.Viewer.EmbedEndpoint = endpoint
	}
	if slides := os.Getenv("LECTERN_DEFAULT_TOTAL_SLIDES"); slides != "" {
		n, err := strconv.Atoi(slides)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid LECTERN_DEFAULT_TOTAL_SLIDES: %q", slides)
		}
		cfg.Presenter.DefaultTotalSlides = n
	}
	if interval := os.Getenv("LECTERN_POLL_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid LECTERN_POLL_INTERVAL: %q", interval)
		}
		cfg.Presenter.PollInterval = d
	}
	if platform := os.Getenv("LECTERN_ADDIN_PLATFORM"); platform != "" {
		cfg.Addin.ExpectedPlatform = platform
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
