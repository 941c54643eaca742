package config

import (
	"os"
	"strconv"
	"time"

	"qvt-engine/common/config"

	"github.com/joho/godotenv"
)

// Config QVT 引擎配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig

	HTTP struct {
		Addr string
	}

	// 评分配置（档位边界是配置不是常量，便于不改代码调参）
	Scoring struct {
		TierHighMin              float64 // composite >= TierHighMin → high
		TierMediumMin            float64 // composite >= TierMediumMin → medium
		ConfidenceBaseline       float64 // 置信度基线
		ConfidenceCommentPenalty float64 // 缺失 comment 的置信度扣减
	}

	// 聚合配置
	Aggregation struct {
		KMin           int // 匿名性门槛：窗口内去重参与人数下限
		WindowDays     int // 滚动窗口天数（异步重算和定时重算共用）
		CacheKeyPrefix string
		CacheTTL       time.Duration
		ReportTimezone string
	}

	// 报警配置
	Alert struct {
		RulesFile string // YAML 规则文件路径
	}

	// 异步管道配置（Redis Streams）
	Stream struct {
		EntryChanged  string // 自评变更事件流
		ConsumerGroup string
		ConsumerName  string
	}

	// 定时重算配置
	Scheduler struct {
		RecomputeSpec string // cron 表达式，默认每小时
	}

	// 外部措辞协作方（可选，不可用时回落到静态文案目录）
	Phrasing struct {
		BaseURL string
		Timeout time.Duration
	}

	// 存储访问超时（超时以 ErrStoreTimeout 上浮，由调用方重试）
	Store struct {
		QueryTimeout time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（.env → 环境变量 → 默认值）
func Load() (*Config, error) {
	// .env 存在则加载（本地开发用，生产环境靠注入的环境变量）
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "qvtbox")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8087")

	cfg.Scoring.TierHighMin = getEnvFloat("TIER_HIGH_MIN", 4.0)
	cfg.Scoring.TierMediumMin = getEnvFloat("TIER_MEDIUM_MIN", 3.0)
	cfg.Scoring.ConfidenceBaseline = getEnvFloat("CONFIDENCE_BASELINE", 0.85)
	cfg.Scoring.ConfidenceCommentPenalty = getEnvFloat("CONFIDENCE_COMMENT_PENALTY", 0.10)

	cfg.Aggregation.KMin = getEnvInt("K_MIN", 5)
	cfg.Aggregation.WindowDays = getEnvInt("AGG_WINDOW_DAYS", 7)
	cfg.Aggregation.CacheKeyPrefix = getEnv("AGG_CACHE_PREFIX", "qvt:team:")
	cfg.Aggregation.CacheTTL = time.Duration(getEnvInt("AGG_CACHE_TTL", 300)) * time.Second
	cfg.Aggregation.ReportTimezone = getEnv("REPORT_TIMEZONE", "Europe/Paris")

	cfg.Alert.RulesFile = getEnv("ALERT_RULES_FILE", "configs/alert_rules.yaml")

	cfg.Stream.EntryChanged = getEnv("STREAM_ENTRY_CHANGED", "qvt:entries:changed")
	cfg.Stream.ConsumerGroup = getEnv("STREAM_CONSUMER_GROUP", "qvt-engine")
	cfg.Stream.ConsumerName = getEnv("STREAM_CONSUMER_NAME", "qvt-engine-1")

	cfg.Scheduler.RecomputeSpec = getEnv("RECOMPUTE_CRON", "0 * * * *")

	cfg.Phrasing.BaseURL = getEnv("PHRASING_BASE_URL", "")
	cfg.Phrasing.Timeout = time.Duration(getEnvInt("PHRASING_TIMEOUT", 5)) * time.Second

	cfg.Store.QueryTimeout = time.Duration(getEnvInt("STORE_QUERY_TIMEOUT", 5)) * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
