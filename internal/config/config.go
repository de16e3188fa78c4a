package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL        = "https://www.businesslist.com.ng/category/small-business"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultGeocoderURL    = "https://nominatim.openstreetmap.org/search"
	DefaultGeocoderUA     = "business_locator"
	DefaultFailureLog     = "failed_geocoding.log"
	DefaultLogFile        = "scraper.log"
	DefaultRawSheet       = "Sheet1"
	DefaultQualifiedSheet = "Sheet2"
)

type Landmark struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

type Crawl struct {
	BaseURL            string `yaml:"base_url"`
	Pages              int    `yaml:"pages"`
	FlushEveryPages    int    `yaml:"flush_every_pages"`
	DetailDelaySeconds int    `yaml:"detail_delay_seconds"`
	Workers            int    `yaml:"workers"`
}

type Fetch struct {
	UserAgent          string `yaml:"user_agent"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	Attempts           int    `yaml:"attempts"`
	BackoffBaseSeconds int    `yaml:"backoff_base_seconds"`
	RespectRobots      bool   `yaml:"respect_robots"`
}

type Geocoder struct {
	BaseURL            string `yaml:"base_url"`
	UserAgent          string `yaml:"user_agent"`
	Email              string `yaml:"email"`
	Attempts           int    `yaml:"attempts"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	MinIntervalSeconds int    `yaml:"min_interval_seconds"`
	FailureLog         string `yaml:"failure_log"`
}

type Qualify struct {
	ThresholdMiles float64    `yaml:"threshold_miles"`
	LandmarkKind   string     `yaml:"landmark_kind"`
	States         []string   `yaml:"states"`
	Landmarks      []Landmark `yaml:"landmarks"`
}

type Sheets struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
	KeyringAccount  string `yaml:"keyring_account"`
}

type SQLite struct {
	Path string `yaml:"path"`
}

type Postgres struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

type CSV struct {
	Dir string `yaml:"dir"`
}

type Sink struct {
	Backend        string   `yaml:"backend"` // sheets | sqlite | postgres | csv | memory
	RawSheet       string   `yaml:"raw_sheet"`
	QualifiedSheet string   `yaml:"qualified_sheet"`
	Sheets         Sheets   `yaml:"sheets"`
	SQLite         SQLite   `yaml:"sqlite"`
	Postgres       Postgres `yaml:"postgres"`
	CSV            CSV      `yaml:"csv"`
}

type Log struct {
	Level  string `yaml:"level"` // debug | info | warn | error
	File   string `yaml:"file"`
	Stderr bool   `yaml:"stderr"`
}

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Crawl    Crawl    `yaml:"crawl"`
	Fetch    Fetch    `yaml:"fetch"`
	Geocoder Geocoder `yaml:"geocoder"`
	Qualify  Qualify  `yaml:"qualify"`
	Sink     Sink     `yaml:"sink"`
	Log      Log      `yaml:"log"`
}

// Load decodes path over the defaults, so keys missing from the file keep
// their default and explicit values (including zero) win.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued setting.
func ApplyDefaults(cfg *Config) {
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = "."
	}

	c := &cfg.Crawl
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Pages == 0 {
		c.Pages = 15
	}
	if c.FlushEveryPages == 0 {
		c.FlushEveryPages = 5
	}
	if c.DetailDelaySeconds == 0 {
		c.DetailDelaySeconds = 2
	}
	if c.Workers == 0 {
		c.Workers = 1
	}

	f := &cfg.Fetch
	if f.UserAgent == "" {
		f.UserAgent = DefaultUserAgent
	}
	if f.TimeoutSeconds == 0 {
		f.TimeoutSeconds = 30
	}
	if f.Attempts == 0 {
		f.Attempts = 3
	}
	if f.BackoffBaseSeconds == 0 {
		f.BackoffBaseSeconds = 1
	}

	g := &cfg.Geocoder
	if g.BaseURL == "" {
		g.BaseURL = DefaultGeocoderURL
	}
	if g.UserAgent == "" {
		g.UserAgent = DefaultGeocoderUA
	}
	if g.Attempts == 0 {
		g.Attempts = 3
	}
	if g.TimeoutSeconds == 0 {
		g.TimeoutSeconds = 10
	}
	if g.MinIntervalSeconds == 0 {
		g.MinIntervalSeconds = 1
	}
	if g.FailureLog == "" {
		g.FailureLog = DefaultFailureLog
	}

	q := &cfg.Qualify
	if q.ThresholdMiles == 0 {
		q.ThresholdMiles = 5
	}
	if q.LandmarkKind == "" {
		q.LandmarkKind = "university"
	}
	if len(q.States) == 0 {
		q.States = []string{"Lagos", "Oyo"}
	}
	if len(q.Landmarks) == 0 {
		q.Landmarks = []Landmark{
			{Name: "UNILAG", Lat: 6.517912, Lon: 3.385983},
			{Name: "UI", Lat: 7.44167, Lon: 3.90000},
			{Name: "Caleb University", Lat: 6.6113, Lon: 3.8234},
			{Name: "LASUTH", Lat: 6.5644, Lon: 3.3470},
		}
	}

	s := &cfg.Sink
	if s.Backend == "" {
		s.Backend = "sheets"
	}
	if s.RawSheet == "" {
		s.RawSheet = DefaultRawSheet
	}
	if s.QualifiedSheet == "" {
		s.QualifiedSheet = DefaultQualifiedSheet
	}
	if s.Sheets.KeyringAccount == "" {
		s.Sheets.KeyringAccount = "sheets-service-account"
	}
	if s.SQLite.Path == "" {
		s.SQLite.Path = "leadscout.db"
	}
	if s.Postgres.MaxConns == 0 {
		s.Postgres.MaxConns = 4
	}
	if s.CSV.Dir == "" {
		s.CSV.Dir = "sheets"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = DefaultLogFile
	}
}

func (c Crawl) DetailDelay() time.Duration {
	return time.Duration(c.DetailDelaySeconds) * time.Second
}

func (f Fetch) Timeout() time.Duration { return time.Duration(f.TimeoutSeconds) * time.Second }

func (f Fetch) BackoffBase() time.Duration {
	return time.Duration(f.BackoffBaseSeconds) * time.Second
}

func (g Geocoder) Timeout() time.Duration { return time.Duration(g.TimeoutSeconds) * time.Second }

func (g Geocoder) MinInterval() time.Duration {
	return time.Duration(g.MinIntervalSeconds) * time.Second
}
