// internal/config/config.go
package config

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Source   SourceConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Kafka    KafkaConfig
	Gap      GapConfig
	Monitor  MonitorConfig
	Planner  PlannerConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Driver   string
	MaxConns int64
}

type AppConfig struct {
	DataDir     string
	OutputDir   string
	SnapshotDir string
	LogLevel    string
	Dimension   string
}

// SourceConfig selects where the catalog, transactions and territories are read from.
type SourceConfig struct {
	Kind             string // csv, xlsx or postgres
	ProductsPath     string
	TransactionsPath string
	TerritoriesPath  string
	WorkbookPath     string
	ProductsSheet    string
	SalesSheet       string
	TerritoriesSheet string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	FolderID        string
	CredentialsJSON string
	DownloadDir     string
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	AlertTopic string
}

// SeverityBand maps every gap score at or above Min (and below the next band) to Severity.
type SeverityBand struct {
	Min      float64
	Severity domain.Severity
}

// GapConfig drives the gap scorer.
type GapConfig struct {
	Bands             []SeverityBand
	StatusColors      map[domain.Severity]string
	TargetMultipliers map[string]float64
}

// MonitorConfig holds the change analyzer thresholds. CriticalAlertScore is a raw gap
// score cutoff and is independent of the severity bands.
type MonitorConfig struct {
	CriticalAlertScore float64
	GapIncreasePct     float64
	GapImprovePct      float64
	SupplyDropPct      float64
	DemandSpikePct     float64
}

// PlannerConfig holds the action planner thresholds.
type PlannerConfig struct {
	CriticalScore     float64
	HighScore         float64
	BalancedScore     float64
	GapIncreasePct    float64
	GapImprovePct     float64
	SupplyDemandRatio float64
}

func DefaultGapConfig() GapConfig {
	return GapConfig{
		Bands: []SeverityBand{
			{Min: 0, Severity: domain.SeverityLow},
			{Min: 50, Severity: domain.SeverityModerate},
			{Min: 100, Severity: domain.SeverityHigh},
			{Min: 200, Severity: domain.SeverityCritical},
		},
		StatusColors: map[domain.Severity]string{
			domain.SeverityLow:      "#2ecc71",
			domain.SeverityModerate: "#f1c40f",
			domain.SeverityHigh:     "#e67e22",
			domain.SeverityCritical: "#e74c3c",
		},
		TargetMultipliers: map[string]float64{
			"Total Revenue":              1.10,
			"Average Order Value":        1.08,
			"Average Product Price":      1.05,
			"Average Discount Rate":      0.95,
			"High Income Customer Ratio": 1.10,
			"Homeowner Percentage":       1.10,
			"Total Orders":               1.05,
			"Total Customers":            1.05,
			"Orders per Customer":        1.05,
			"Revenue per Customer":       1.08,
			"Profit Margin":              1.05,
		},
	}
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CriticalAlertScore: 5,
		GapIncreasePct:     20,
		GapImprovePct:      -20,
		SupplyDropPct:      -10,
		DemandSpikePct:     20,
	}
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		CriticalScore:     5,
		HighScore:         3,
		BalancedScore:     1,
		GapIncreasePct:    20,
		GapImprovePct:     -20,
		SupplyDemandRatio: 0.3,
	}
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		gapDefaults := DefaultGapConfig()
		monDefaults := DefaultMonitorConfig()
		planDefaults := DefaultPlannerConfig()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "gapwatch")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_DRIVER", "pgx")
		viper.SetDefault("DB_MAX_CONCURRENCY", 10)
		viper.SetDefault("APP_DATA_DIR", "./data/input")
		viper.SetDefault("APP_OUTPUT_DIR", "./data/results")
		viper.SetDefault("APP_SNAPSHOT_DIR", "./data/results/monitoring_reports")
		viper.SetDefault("APP_LOG_LEVEL", "info")
		viper.SetDefault("APP_DIMENSION", domain.DimensionCategory.Name)
		viper.SetDefault("SOURCE_KIND", "csv")
		viper.SetDefault("SOURCE_PRODUCTS_PATH", "./data/input/products.csv")
		viper.SetDefault("SOURCE_TRANSACTIONS_PATH", "./data/input/sales.csv")
		viper.SetDefault("SOURCE_TERRITORIES_PATH", "./data/input/territories.csv")
		viper.SetDefault("SOURCE_WORKBOOK_PATH", "./data/input/Project Data.xlsx")
		viper.SetDefault("SOURCE_PRODUCTS_SHEET", "Products")
		viper.SetDefault("SOURCE_SALES_SHEET", "Sales")
		viper.SetDefault("SOURCE_TERRITORIES_SHEET", "Territories")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_REPORT_TTL_SECONDS", 300)
		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("STORAGE_REGION", "us-east-1")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("STORAGE_PREFIX", "gapwatch")
		viper.SetDefault("DRIVE_DOWNLOAD_DIR", "./data/input")
		viper.SetDefault("KAFKA_ENABLED", false)
		viper.SetDefault("KAFKA_BROKERS", []string{"localhost:9092"})
		viper.SetDefault("KAFKA_ALERT_TOPIC", "gapwatch.alerts")
		viper.SetDefault("GAP_MODERATE_MIN", gapDefaults.Bands[1].Min)
		viper.SetDefault("GAP_HIGH_MIN", gapDefaults.Bands[2].Min)
		viper.SetDefault("GAP_CRITICAL_MIN", gapDefaults.Bands[3].Min)
		viper.SetDefault("MONITOR_CRITICAL_ALERT_SCORE", monDefaults.CriticalAlertScore)
		viper.SetDefault("MONITOR_GAP_INCREASE_PCT", monDefaults.GapIncreasePct)
		viper.SetDefault("MONITOR_GAP_IMPROVE_PCT", monDefaults.GapImprovePct)
		viper.SetDefault("MONITOR_SUPPLY_DROP_PCT", monDefaults.SupplyDropPct)
		viper.SetDefault("MONITOR_DEMAND_SPIKE_PCT", monDefaults.DemandSpikePct)
		viper.SetDefault("PLANNER_CRITICAL_SCORE", planDefaults.CriticalScore)
		viper.SetDefault("PLANNER_HIGH_SCORE", planDefaults.HighScore)
		viper.SetDefault("PLANNER_BALANCED_SCORE", planDefaults.BalancedScore)
		viper.SetDefault("PLANNER_GAP_INCREASE_PCT", planDefaults.GapIncreasePct)
		viper.SetDefault("PLANNER_GAP_IMPROVE_PCT", planDefaults.GapImprovePct)
		viper.SetDefault("PLANNER_SUPPLY_DEMAND_RATIO", planDefaults.SupplyDemandRatio)

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_OUTPUT_DIR"))
		ensureDir(viper.GetString("APP_SNAPSHOT_DIR"))

		gap := gapDefaults
		gap.Bands = []SeverityBand{
			{Min: 0, Severity: domain.SeverityLow},
			{Min: viper.GetFloat64("GAP_MODERATE_MIN"), Severity: domain.SeverityModerate},
			{Min: viper.GetFloat64("GAP_HIGH_MIN"), Severity: domain.SeverityHigh},
			{Min: viper.GetFloat64("GAP_CRITICAL_MIN"), Severity: domain.SeverityCritical},
		}

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
				Driver:   viper.GetString("DB_DRIVER"),
				MaxConns: viper.GetInt64("DB_MAX_CONCURRENCY"),
			},
			App: AppConfig{
				DataDir:     viper.GetString("APP_DATA_DIR"),
				OutputDir:   viper.GetString("APP_OUTPUT_DIR"),
				SnapshotDir: viper.GetString("APP_SNAPSHOT_DIR"),
				LogLevel:    viper.GetString("APP_LOG_LEVEL"),
				Dimension:   viper.GetString("APP_DIMENSION"),
			},
			Source: SourceConfig{
				Kind:             strings.ToLower(viper.GetString("SOURCE_KIND")),
				ProductsPath:     viper.GetString("SOURCE_PRODUCTS_PATH"),
				TransactionsPath: viper.GetString("SOURCE_TRANSACTIONS_PATH"),
				TerritoriesPath:  viper.GetString("SOURCE_TERRITORIES_PATH"),
				WorkbookPath:     viper.GetString("SOURCE_WORKBOOK_PATH"),
				ProductsSheet:    viper.GetString("SOURCE_PRODUCTS_SHEET"),
				SalesSheet:       viper.GetString("SOURCE_SALES_SHEET"),
				TerritoriesSheet: viper.GetString("SOURCE_TERRITORIES_SHEET"),
			},
			Cache: CacheConfig{
				Enabled:          viper.GetBool("CACHE_ENABLED"),
				RedisURL:         viper.GetString("REDIS_URL"),
				RedisHost:        viper.GetString("REDIS_HOST"),
				RedisPort:        viper.GetString("REDIS_PORT"),
				RedisPassword:    viper.GetString("REDIS_PASSWORD"),
				RedisDB:          viper.GetInt("REDIS_DB"),
				ReportTTLSeconds: viper.GetInt("CACHE_REPORT_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("STORAGE_ENABLED"),
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
				Prefix:    viper.GetString("STORAGE_PREFIX"),
			},
			Drive: DriveConfig{
				FolderID:        viper.GetString("DRIVE_FOLDER_ID"),
				CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
				DownloadDir:     viper.GetString("DRIVE_DOWNLOAD_DIR"),
			},
			Kafka: KafkaConfig{
				Enabled:    viper.GetBool("KAFKA_ENABLED"),
				Brokers:    viper.GetStringSlice("KAFKA_BROKERS"),
				AlertTopic: viper.GetString("KAFKA_ALERT_TOPIC"),
			},
			Gap: gap,
			Monitor: MonitorConfig{
				CriticalAlertScore: viper.GetFloat64("MONITOR_CRITICAL_ALERT_SCORE"),
				GapIncreasePct:     viper.GetFloat64("MONITOR_GAP_INCREASE_PCT"),
				GapImprovePct:      viper.GetFloat64("MONITOR_GAP_IMPROVE_PCT"),
				SupplyDropPct:      viper.GetFloat64("MONITOR_SUPPLY_DROP_PCT"),
				DemandSpikePct:     viper.GetFloat64("MONITOR_DEMAND_SPIKE_PCT"),
			},
			Planner: PlannerConfig{
				CriticalScore:     viper.GetFloat64("PLANNER_CRITICAL_SCORE"),
				HighScore:         viper.GetFloat64("PLANNER_HIGH_SCORE"),
				BalancedScore:     viper.GetFloat64("PLANNER_BALANCED_SCORE"),
				GapIncreasePct:    viper.GetFloat64("PLANNER_GAP_INCREASE_PCT"),
				GapImprovePct:     viper.GetFloat64("PLANNER_GAP_IMPROVE_PCT"),
				SupplyDemandRatio: viper.GetFloat64("PLANNER_SUPPLY_DEMAND_RATIO"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
