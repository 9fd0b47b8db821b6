package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	EnvAPIKey  = "NSFW_API_KEY"
	EnvConfig  = "NSFW_CONFIG"
	EnvLibonnx = "ONNXRUNTIME_LIB"

	BackendONNX   = "onnx"
	BackendVision = "vision"
)

var ErrMissingAPIKey = errors.New("API key not set in environment variable: " + EnvAPIKey)

type Config struct {
	// APIKey never comes from the file.
	APIKey   string `toml:"-"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	LogLevel string `toml:"log_level"`
	Libonnx  string `toml:"libonnx"`
	Backend  string `toml:"backend"`

	ModelID       string   `toml:"model_id"`
	ModelUrl      string   `toml:"model_url"`
	ModelDir      string   `toml:"model_dir"`
	ModelFileName string   `toml:"model_file_name"`
	Labels        []string `toml:"labels"`
	LabelsFile    string   `toml:"labels_file"`
	TopK          int      `toml:"top_k"`
	Sessions      int      `toml:"sessions"`
}

func Default() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          "8000",
		LogLevel:      "info",
		Backend:       BackendONNX,
		ModelID:       "Falconsai/nsfw_image_detection",
		ModelUrl:      "https://huggingface.co/Falconsai/nsfw_image_detection/resolve/main/model.onnx?download=true",
		ModelDir:      "./hf_cache",
		ModelFileName: "model.onnx",
		Labels:        []string{"normal", "nsfw"},
		TopK:          5,
		Sessions:      2,
	}
}

// Load reads the TOML file at path when it exists, then applies the environment.
// An empty path falls back to NSFW_CONFIG and then to config.toml.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = "config.toml"
	}
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.APIKey = os.Getenv(EnvAPIKey)
	if lib := os.Getenv(EnvLibonnx); lib != "" {
		cfg.Libonnx = lib
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.Backend {
	case BackendONNX, BackendVision:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.TopK < 1 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.Sessions < 1 {
		return fmt.Errorf("sessions must be positive, got %d", c.Sessions)
	}
	if c.Backend == BackendONNX && len(c.Labels) == 0 && c.LabelsFile == "" {
		return errors.New("either labels or labels_file must be set")
	}
	return nil
}

func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}
