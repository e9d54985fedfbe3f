package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Portal     PortalConfig     `yaml:"portal" json:"portal"`
	Browser    BrowserConfig    `yaml:"browser" json:"browser"`
	Automation AutomationConfig `yaml:"automation" json:"automation"`
	Timing     TimingConfig     `yaml:"timing" json:"timing"`
	Queue      QueueConfig      `yaml:"queue" json:"queue"`
	Export     ExportConfig     `yaml:"export" json:"export"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	TextGen    TextGenConfig    `yaml:"textgen" json:"textgen"`
}

// PortalConfig describes the target portal. Credentials are only read from
// the environment and are never written back by Save.
type PortalConfig struct {
	BaseURL          string   `yaml:"base_url" json:"base_url"`
	LoginPath        string   `yaml:"login_path" json:"login_path"`
	ActivityPaths    []string `yaml:"activity_paths" json:"activity_paths"`
	ActivityEndpoint string   `yaml:"activity_endpoint" json:"activity_endpoint"`
	LoginMarkers     []string `yaml:"login_markers" json:"login_markers"`
	FormMarkers      []string `yaml:"form_markers" json:"form_markers"`
	Username         string   `yaml:"-" json:"-"`
	Password         string   `yaml:"-" json:"-"`
}

type BrowserConfig struct {
	Engine         string `yaml:"engine" json:"engine"`
	Headless       bool   `yaml:"headless" json:"headless"`
	Bin            string `yaml:"bin" json:"bin"`
	UserDataDir    string `yaml:"user_data_dir" json:"user_data_dir"`
	ViewportWidth  int    `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height" json:"viewport_height"`
	UserAgent      string `yaml:"user_agent" json:"user_agent"`

	// PageLoadTimeout bounds a navigation including its load event.
	PageLoadTimeout time.Duration `yaml:"page_load_timeout" json:"page_load_timeout"`
}

type AutomationConfig struct {
	ResolveTimeout     time.Duration   `yaml:"resolve_timeout" json:"resolve_timeout"`
	MaxAttempts        int             `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay          time.Duration   `yaml:"base_delay" json:"base_delay"`
	LinearBackoff      bool            `yaml:"linear_backoff" json:"linear_backoff"`
	LoginWait          time.Duration   `yaml:"login_wait" json:"login_wait"`
	ResponseWait       time.Duration   `yaml:"response_wait" json:"response_wait"`
	RequireEvidence    bool            `yaml:"require_evidence" json:"require_evidence"`
	CatalogFile        string          `yaml:"catalog_file" json:"catalog_file"`
	ScreenshotDir      string          `yaml:"screenshot_dir" json:"screenshot_dir"`
	ScreenshotAttempts bool            `yaml:"screenshot_attempts" json:"screenshot_attempts"`
	Heuristics         HeuristicConfig `yaml:"heuristics" json:"heuristics"`
}

type HeuristicConfig struct {
	NavigationMeansSubmitted bool `yaml:"navigation_means_submitted" json:"navigation_means_submitted"`
	LingeringModalTentative  bool `yaml:"lingering_modal_tentative" json:"lingering_modal_tentative"`
}

type TimingConfig struct {
	SettleDelay    time.Duration `yaml:"settle_delay" json:"settle_delay"`
	ActionDelay    time.Duration `yaml:"action_delay" json:"action_delay"`
	PageLoadWait   time.Duration `yaml:"page_load_wait" json:"page_load_wait"`
	ReadBackDelay  time.Duration `yaml:"read_back_delay" json:"read_back_delay"`
	HumanVariation float64       `yaml:"human_variation" json:"human_variation"`
}

type QueueConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"-" json:"-"`
	DB        int    `yaml:"db" json:"db"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

type ExportConfig struct {
	Concurrency        int            `yaml:"concurrency" json:"concurrency"`
	MaxJobAttempts     int            `yaml:"max_job_attempts" json:"max_job_attempts"`
	BackoffInitial     time.Duration  `yaml:"backoff_initial" json:"backoff_initial"`
	BackoffMax         time.Duration  `yaml:"backoff_max" json:"backoff_max"`
	RunTimeout         time.Duration  `yaml:"run_timeout" json:"run_timeout"`
	SubmissionsPerHour int            `yaml:"submissions_per_hour" json:"submissions_per_hour"`
	DailyLimit         int            `yaml:"daily_limit" json:"daily_limit"`
	SweepSchedule      string         `yaml:"sweep_schedule" json:"sweep_schedule"`
	NATSURL            string         `yaml:"nats_url" json:"nats_url"`
	NATSSubject        string         `yaml:"nats_subject" json:"nats_subject"`
	Schedule           ScheduleConfig `yaml:"schedule" json:"schedule"`
}

type ScheduleConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	StartHour int    `yaml:"start_hour" json:"start_hour"`
	EndHour   int    `yaml:"end_hour" json:"end_hour"`
	Timezone  string `yaml:"timezone" json:"timezone"`
	WorkDays  []int  `yaml:"work_days" json:"work_days"`
}

type StorageConfig struct {
	DataDir     string `yaml:"data_dir" json:"data_dir"`
	EntriesFile string `yaml:"entries_file" json:"entries_file"`
	RunsFile    string `yaml:"runs_file" json:"runs_file"`
	StatsFile   string `yaml:"stats_file" json:"stats_file"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	OutputFile string `yaml:"output_file" json:"output_file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

type TextGenConfig struct {
	APIKey      string  `yaml:"-" json:"-"`
	Model       string  `yaml:"model" json:"model"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

func DefaultConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:   "https://siakad.example.ac.id",
			LoginPath: "/Account/Login",
			ActivityPaths: []string{
				"/Magang/Logbook",
				"/Magang/Kegiatan",
				"/Mahasiswa/Logbook",
				"/Logbook/Index",
			},
			ActivityEndpoint: "Logbook",
			LoginMarkers:     []string{"login", "Login", "signin"},
			FormMarkers:      []string{"/Create", "/Tambah", "/Add"},
			Username:         os.Getenv("PORTAL_USERNAME"),
			Password:         os.Getenv("PORTAL_PASSWORD"),
		},
		Browser: BrowserConfig{
			Engine:         "rod",
			Headless:       true,
			UserDataDir:    "",
			ViewportWidth:  1366,
			ViewportHeight: 900,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",

			PageLoadTimeout: 30 * time.Second,
		},
		Automation: AutomationConfig{
			ResolveTimeout:     10 * time.Second,
			MaxAttempts:        3,
			BaseDelay:          2 * time.Second,
			LinearBackoff:      true,
			LoginWait:          15 * time.Second,
			ResponseWait:       10 * time.Second,
			RequireEvidence:    false,
			ScreenshotDir:      "./data/screenshots",
			ScreenshotAttempts: true,
			Heuristics: HeuristicConfig{
				NavigationMeansSubmitted: true,
				LingeringModalTentative:  true,
			},
		},
		Timing: TimingConfig{
			SettleDelay:    2 * time.Second,
			ActionDelay:    300 * time.Millisecond,
			PageLoadWait:   1500 * time.Millisecond,
			ReadBackDelay:  200 * time.Millisecond,
			HumanVariation: 0.2,
		},
		Queue: QueueConfig{
			Addr:      "localhost:6379",
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        0,
			KeyPrefix: "logbook",
		},
		Export: ExportConfig{
			Concurrency:        2,
			MaxJobAttempts:     3,
			BackoffInitial:     1 * time.Minute,
			BackoffMax:         30 * time.Minute,
			RunTimeout:         10 * time.Minute,
			SubmissionsPerHour: 20,
			DailyLimit:         50,
			SweepSchedule:      "@every 5m",
			NATSSubject:        "logbook.export.status",
			Schedule: ScheduleConfig{
				Enabled:   false,
				StartHour: 6,
				EndHour:   22,
				Timezone:  "Asia/Jakarta",
				WorkDays:  []int{1, 2, 3, 4, 5, 6},
			},
		},
		Storage: StorageConfig{
			DataDir:     "./data",
			EntriesFile: "entries.json",
			RunsFile:    "runs.json",
			StatsFile:   "stats.json",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			OutputFile: "./data/logs/automation.log",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
		},
		TextGen: TextGenConfig{
			APIKey:      os.Getenv("ANTHROPIC_API_KEY"),
			Model:       "claude-3-5-haiku-latest",
			MaxTokens:   1024,
			Temperature: 0.4,
		},
	}
}

func Load(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		ext := filepath.Ext(configPath)
		switch ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case ".json":
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse JSON config: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported config file format: %s", ext)
		}
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applyEnvOverrides() {
	if username := os.Getenv("PORTAL_USERNAME"); username != "" {
		c.Portal.Username = username
	}
	if password := os.Getenv("PORTAL_PASSWORD"); password != "" {
		c.Portal.Password = password
	}
	if base := os.Getenv("PORTAL_BASE_URL"); base != "" {
		c.Portal.BaseURL = base
	}
	if headless := os.Getenv("BROWSER_HEADLESS"); headless == "false" {
		c.Browser.Headless = false
	}
	if engine := os.Getenv("BROWSER_ENGINE"); engine != "" {
		c.Browser.Engine = engine
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Queue.Addr = addr
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.Queue.DB = n
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Queue.Password = password
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		c.Export.NATSURL = url
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.TextGen.APIKey = key
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Validate checks settings that every command needs. Credentials are checked
// separately by ValidateCredentials because only submitting commands need them.
func (c *Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return fmt.Errorf("portal base URL is required")
	}
	if len(c.Portal.ActivityPaths) == 0 {
		return fmt.Errorf("at least one portal activity path is required")
	}
	switch c.Browser.Engine {
	case "rod", "playwright":
	default:
		return fmt.Errorf("unsupported browser engine: %q", c.Browser.Engine)
	}
	if c.Browser.ViewportWidth < 800 || c.Browser.ViewportHeight < 600 {
		return fmt.Errorf("viewport dimensions too small")
	}
	if c.Browser.PageLoadTimeout <= 0 {
		return fmt.Errorf("browser page load timeout must be positive")
	}
	if c.Automation.MaxAttempts < 1 {
		return fmt.Errorf("automation max attempts must be at least 1")
	}
	if c.Automation.ResolveTimeout <= 0 {
		return fmt.Errorf("automation resolve timeout must be positive")
	}
	if c.Export.Concurrency < 1 {
		return fmt.Errorf("export concurrency must be at least 1")
	}
	if c.Export.MaxJobAttempts < 1 {
		return fmt.Errorf("export max job attempts must be at least 1")
	}
	return nil
}

func (c *Config) ValidateCredentials() error {
	if c.Portal.Username == "" {
		return fmt.Errorf("portal username is required (PORTAL_USERNAME)")
	}
	if c.Portal.Password == "" {
		return fmt.Errorf("portal password is required (PORTAL_PASSWORD)")
	}
	return nil
}

func (c *Config) Save(path string) error {
	ext := filepath.Ext(path)
	var data []byte
	var err error

	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) LoginURL() string {
	return c.Portal.BaseURL + c.Portal.LoginPath
}

func (c *Config) ActivityURLs() []string {
	urls := make([]string, 0, len(c.Portal.ActivityPaths))
	for _, p := range c.Portal.ActivityPaths {
		urls = append(urls, c.Portal.BaseURL+p)
	}
	return urls
}
