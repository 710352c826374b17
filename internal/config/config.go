package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PHOTOBOOTH_"

// Config holds the application configuration
type Config struct {
	Capture   CaptureConfig   `json:"capture"`
	Camera    CameraConfig    `json:"camera"`
	Layout    LayoutConfig    `json:"layout"`
	Templates TemplatesConfig `json:"templates"`
	Upload    UploadConfig    `json:"upload"`
	Output    OutputConfig    `json:"output"`
	Vision    VisionConfig    `json:"vision"`
	Logging   LoggingConfig   `json:"logging"`
}

// CaptureConfig holds countdown timing
type CaptureConfig struct {
	CountdownSeconds int `json:"countdown_seconds"`
	InterShotDelayMs int `json:"inter_shot_delay_ms"`
	FlashDurationMs  int `json:"flash_duration_ms"`
}

// CameraConfig selects the capture device
type CameraConfig struct {
	Device     string `json:"device"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FacingUser bool   `json:"facing_user"`
}

// LayoutConfig holds default slot geometry and compositor colors
type LayoutConfig struct {
	MarginRatio float64 `json:"margin_ratio"`
	GapRatio    float64 `json:"gap_ratio"`
	Background  string  `json:"background"`
	HandleSize  float64 `json:"handle_size"`
}

// TemplatesConfig locates stored and catalog templates
type TemplatesConfig struct {
	StoreDir      string `json:"store_dir"`
	CatalogFile   string `json:"catalog_file"`
	MaxTemplates  int    `json:"max_templates"`
	MaxFrameBytes int    `json:"max_frame_bytes"`
	QuotaBytes    int64  `json:"quota_bytes"`
}

// UploadConfig holds upload limits
type UploadConfig struct {
	MaxBytes     int64 `json:"max_bytes"`
	MinDimension int   `json:"min_dimension"`
	MaxDimension int   `json:"max_dimension"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	DefaultFormat string `json:"default_format"`
	OutputDir     string `json:"output_dir"`
	Quality       int    `json:"quality"`
}

// VisionConfig holds the optional vision-model fallback for slot detection.
// An empty URL disables it.
type VisionConfig struct {
	Backend string `json:"backend"` // ollama or llamacpp
	URL     string `json:"url"`
	Model   string `json:"model"`
}

// LoggingConfig controls log destinations
type LoggingConfig struct {
	Level       string `json:"level"`
	File        string `json:"file"`
	MaxBytes    int    `json:"max_bytes"`
	BackupCount int    `json:"backup_count"`
	Stdout      bool   `json:"stdout"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			CountdownSeconds: 3,
			InterShotDelayMs: 1500,
			FlashDurationMs:  300,
		},
		Camera: CameraConfig{
			Device:     "0",
			Width:      1280,
			Height:     720,
			FacingUser: true,
		},
		Layout: LayoutConfig{
			MarginRatio: 0.12,
			GapRatio:    0.04,
			Background:  "#FFFFFF",
			HandleSize:  16,
		},
		Templates: TemplatesConfig{
			StoreDir:      "./data",
			CatalogFile:   "./frames/catalog.yaml",
			MaxTemplates:  20,
			MaxFrameBytes: 5 << 20,
			QuotaBytes:    50 << 20,
		},
		Upload: UploadConfig{
			MaxBytes:     5 << 20,
			MinDimension: 400,
			MaxDimension: 4096,
		},
		Output: OutputConfig{
			DefaultFormat: "png",
			OutputDir:     "./output",
			Quality:       92,
		},
		Vision: VisionConfig{
			Backend: "ollama",
			Model:   "llava",
		},
		Logging: LoggingConfig{
			Level:       "INFO",
			MaxBytes:    5 << 20,
			BackupCount: 3,
			Stdout:      true,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename when it exists (defaults otherwise), loads .env files
// and applies PHOTOBOOTH_* environment overrides
func Load(filename string, envFiles ...string) (*Config, error) {
	config := Default()
	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			loaded, err := LoadFromFile(filename)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	// A missing .env is normal; only parse errors matter
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from environment variables looked up with
// lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"COUNTDOWN_SECONDS":   &c.Capture.CountdownSeconds,
		"INTER_SHOT_DELAY_MS": &c.Capture.InterShotDelayMs,
		"FLASH_DURATION_MS":   &c.Capture.FlashDurationMs,
		"CAMERA_WIDTH":        &c.Camera.Width,
		"CAMERA_HEIGHT":       &c.Camera.Height,
		"MAX_TEMPLATES":       &c.Templates.MaxTemplates,
		"OUTPUT_QUALITY":      &c.Output.Quality,
	}
	strs := map[string]*string{
		"CAMERA_DEVICE":  &c.Camera.Device,
		"STORE_DIR":      &c.Templates.StoreDir,
		"CATALOG_FILE":   &c.Templates.CatalogFile,
		"OUTPUT_DIR":     &c.Output.OutputDir,
		"OUTPUT_FORMAT":  &c.Output.DefaultFormat,
		"BACKGROUND":     &c.Layout.Background,
		"VISION_BACKEND": &c.Vision.Backend,
		"VISION_URL":     &c.Vision.URL,
		"VISION_MODEL":   &c.Vision.Model,
		"LOG_LEVEL":      &c.Logging.Level,
		"LOG_FILE":       &c.Logging.File,
	}

	for name, dst := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	if v, ok := lookup(EnvPrefix + "MIRROR"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sMIRROR: %w", EnvPrefix, err)
		}
		c.Camera.FacingUser = b
	}
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Capture.CountdownSeconds < 0 || c.Capture.CountdownSeconds > 10 {
		return fmt.Errorf("capture.countdown_seconds must be between 0 and 10")
	}

	if c.Capture.InterShotDelayMs < 0 || c.Capture.FlashDurationMs < 0 {
		return fmt.Errorf("capture delays cannot be negative")
	}

	if c.Camera.Width < 1 || c.Camera.Height < 1 {
		return fmt.Errorf("camera.width and camera.height must be positive")
	}

	if c.Layout.MarginRatio < 0 || c.Layout.MarginRatio >= 0.5 {
		return fmt.Errorf("layout.margin_ratio must be between 0 and 0.5")
	}

	if c.Layout.GapRatio < 0 || c.Layout.GapRatio >= 0.5 {
		return fmt.Errorf("layout.gap_ratio must be between 0 and 0.5")
	}

	if c.Templates.MaxTemplates < 1 {
		return fmt.Errorf("templates.max_templates must be positive")
	}

	if c.Upload.MinDimension < 1 || c.Upload.MaxDimension < c.Upload.MinDimension {
		return fmt.Errorf("upload.min_dimension must be positive and not above upload.max_dimension")
	}

	switch strings.ToLower(c.Output.DefaultFormat) {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("output.default_format must be png, jpeg or webp")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	switch c.Vision.Backend {
	case "", "ollama", "llamacpp":
	default:
		return fmt.Errorf("vision.backend must be ollama or llamacpp")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "photobooth", "config.json")
}
