package config

import (
	"os"
	"path/filepath"
	"strings"

	"rowsynth/internal/runinfo"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config captures all runtime options for a generation run.
type Config struct {
	Profile    string             `yaml:"profile"`
	DDL        string             `yaml:"ddl"`
	Seed       int64              `yaml:"seed"`
	MaxRows    int                `yaml:"max_rows"`
	Generation Generation         `yaml:"generation"`
	Output     Output             `yaml:"output"`
	Sink       SinkConfig         `yaml:"sink"`
	Storage    StorageConfig      `yaml:"storage"`
	Logging    Logging            `yaml:"logging"`
	RunInfo    *runinfo.BasicInfo `yaml:"-"`
}

// Generation controls how the decision tree is walked and values are drawn.
type Generation struct {
	DataType        string `yaml:"data_type"`
	Walker          string `yaml:"walker"`
	RouteProducer   string `yaml:"route_producer"`
	RandomRoutes    int    `yaml:"random_routes"`
	Combination     string `yaml:"combination"`
	Workers         int    `yaml:"workers"`
	Optimise        bool   `yaml:"optimise"`
	MaxStringLength int    `yaml:"max_string_length"`
	// EnumerationLimit bounds how many values a range enumerates before
	// falling back to its boundaries.
	EnumerationLimit uint64 `yaml:"enumeration_limit"`
}

// Output configures the dataset directory.
type Output struct {
	Format      string `yaml:"format"`
	Dir         string `yaml:"dir"`
	Table       string `yaml:"table"`
	Archive     bool   `yaml:"archive"`
	UseUUIDPath bool   `yaml:"use_uuid_path"`
	// Stdout writes rows to standard output instead of a dataset directory.
	Stdout bool `yaml:"stdout"`
}

// SinkConfig holds optional row sinks.
type SinkConfig struct {
	MySQL MySQLSink `yaml:"mysql"`
}

// MySQLSink inserts generated rows into a MySQL-compatible database.
type MySQLSink struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	Database    string `yaml:"database"`
	BatchSize   int    `yaml:"batch_size"`
	CreateTable bool   `yaml:"create_table"`
}

// Logging controls log verbosity and periodic progress.
type Logging struct {
	Verbose            bool   `yaml:"verbose"`
	ReportIntervalRows int    `yaml:"report_interval_rows"`
	LogFile            string `yaml:"log_file"`
}

// StorageConfig holds external storage settings.
type StorageConfig struct {
	S3  S3Config  `yaml:"s3"`
	GCS GCSConfig `yaml:"gcs"`
}

// CloudEnabled reports whether any cloud storage backend is enabled.
func (s StorageConfig) CloudEnabled() bool {
	return s.GCS.Enabled || s.S3.Enabled
}

// S3Config configures S3 uploads (AWS and S3-compatible endpoints).
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// GCSConfig configures GCS uploads.
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

const (
	defaultMaxRows            = 1000
	defaultRandomRoutes       = 1000
	defaultMaxStringLength    = 1000
	defaultBatchSize          = 200
	defaultReportIntervalRows = 10000
)

// Load reads configuration from a YAML file. Relative profile and DDL paths
// are resolved against the directory holding the config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	base := filepath.Dir(path)
	cfg.Profile = resolvePath(base, cfg.Profile)
	cfg.DDL = resolvePath(base, cfg.DDL)
	cfg.RunInfo = runinfo.FromEnv()
	return cfg, nil
}

// Parse decodes YAML over the defaults and normalizes the result.
func Parse(data []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	normalizeConfig(&cfg)
	return cfg, nil
}

// YAML renders the resolved configuration, with secrets masked.
func (c Config) YAML() (string, error) {
	masked := c
	if masked.Storage.S3.SecretAccessKey != "" {
		masked.Storage.S3.SecretAccessKey = "******"
	}
	if masked.Storage.S3.SessionToken != "" {
		masked.Storage.S3.SessionToken = "******"
	}
	if masked.Sink.MySQL.DSN != "" {
		masked.Sink.MySQL.DSN = maskDSNPassword(masked.Sink.MySQL.DSN)
	}
	out, err := yaml.Marshal(masked)
	if err != nil {
		return "", errors.Wrap(err, "marshal config")
	}
	return string(out), nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func normalizeConfig(cfg *Config) {
	cfg.Generation.DataType = normalizeName(cfg.Generation.DataType, "random")
	cfg.Generation.Walker = normalizeName(cfg.Generation.Walker, "cartesian_product")
	cfg.Generation.RouteProducer = normalizeName(cfg.Generation.RouteProducer, "exhaustive")
	cfg.Generation.Combination = normalizeName(cfg.Generation.Combination, "exhaustive")
	cfg.Output.Format = normalizeName(cfg.Output.Format, "csv")
	if cfg.Generation.Workers <= 0 {
		cfg.Generation.Workers = 1
	}
	if cfg.Generation.RandomRoutes < 0 {
		cfg.Generation.RandomRoutes = 0
	}
	if cfg.Generation.MaxStringLength <= 0 {
		cfg.Generation.MaxStringLength = defaultMaxStringLength
	}
	if cfg.MaxRows < 0 {
		cfg.MaxRows = 0
	}
	if strings.TrimSpace(cfg.Output.Table) == "" {
		cfg.Output.Table = "dataset"
	}
	if cfg.Sink.MySQL.BatchSize <= 0 {
		cfg.Sink.MySQL.BatchSize = defaultBatchSize
	}
	if cfg.Logging.ReportIntervalRows < 0 {
		cfg.Logging.ReportIntervalRows = 0
	}
	cfg.Sink.MySQL.DSN = ensureDatabaseInDSN(cfg.Sink.MySQL.DSN, cfg.Sink.MySQL.Database)
}

func normalizeName(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.ReplaceAll(v, "-", "_")
	if v == "" {
		return def
	}
	return v
}

func ensureDatabaseInDSN(dsn string, dbName string) string {
	if dsn == "" || dbName == "" {
		return dsn
	}
	slash := strings.Index(dsn, "/")
	if slash < 0 {
		return dsn
	}
	query := strings.Index(dsn[slash+1:], "?")
	if query >= 0 {
		query = slash + 1 + query
	}
	afterSlash := dsn[slash+1:]
	if query >= 0 {
		afterSlash = dsn[slash+1 : query]
	}
	if strings.TrimSpace(afterSlash) != "" {
		return dsn
	}
	if query >= 0 {
		return dsn[:slash+1] + dbName + dsn[query:]
	}
	return dsn + dbName
}

// AdminDSN strips the database name from a DSN while preserving query parameters.
func AdminDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	slash := strings.Index(dsn, "/")
	if slash < 0 {
		return dsn
	}
	query := strings.Index(dsn[slash+1:], "?")
	if query >= 0 {
		query = slash + 1 + query
		return dsn[:slash+1] + dsn[query:]
	}
	return dsn[:slash+1]
}

func maskDSNPassword(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	colon := strings.Index(dsn[:at], ":")
	if colon < 0 {
		return dsn
	}
	return dsn[:colon+1] + "******" + dsn[at:]
}

func defaultConfig() Config {
	return Config{
		Seed:    0,
		MaxRows: defaultMaxRows,
		Generation: Generation{
			DataType:        "random",
			Walker:          "cartesian_product",
			RouteProducer:   "exhaustive",
			RandomRoutes:    defaultRandomRoutes,
			Combination:     "exhaustive",
			Workers:         1,
			Optimise:        true,
			MaxStringLength: defaultMaxStringLength,
		},
		Output: Output{
			Format:  "csv",
			Dir:     "datasets",
			Table:   "dataset",
			Archive: false,
		},
		Sink: SinkConfig{
			MySQL: MySQLSink{
				DSN:         "root:@tcp(127.0.0.1:4000)/",
				Database:    "rowsynth",
				BatchSize:   defaultBatchSize,
				CreateTable: true,
			},
		},
		Logging: Logging{
			ReportIntervalRows: defaultReportIntervalRows,
			LogFile:            "logs/rowsynth.log",
		},
	}
}
