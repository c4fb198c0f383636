// 包 config：集中读取环境变量配置；.env 由入口通过 godotenv 预先加载
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Postgres struct {
	Host         string
	Port         string
	User         string
	Password     string
	DB           string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type Redis struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r Redis) Addr() string { return r.Host + ":" + r.Port }

type Config struct {
	Addr    string
	APIBase string
	UIDir   string

	DataDir        string
	PackageBaseURL string
	PackageDir     string
	KeepPackages   bool
	RegionsFile    string
	DefaultRegion  string

	MinZoom       int
	MaxNativeZoom int
	CacheSize     int
	CacheTTL      time.Duration
	CacheBackend  string

	StoreBackend string
	GeoIPPath    string
	AdminToken   string
	// AdminAllow：管理接口允许的来源 IP/CIDR，逗号分隔；空表示仅校验令牌
	AdminAllow   []string
	RealIPHeader string

	DownloadTimeout time.Duration

	RateLimitEnabled bool
	RateLimitQPS     int

	TLSEnable   bool
	TLSCertPath string
	TLSKeyPath  string

	Postgres Postgres
	Redis    Redis
}

// TilesDir 解压后区域目录的父目录
func (c Config) TilesDir() string { return filepath.Join(c.DataDir, "tiles") }

// PackagesDir 下载的区域压缩包暂存目录
func (c Config) PackagesDir() string { return filepath.Join(c.DataDir, "packages") }

// SelectionFile 文件后端下的区域选择持久化路径
func (c Config) SelectionFile() string { return filepath.Join(c.DataDir, "state", "selection.json") }

// 文档注释：从环境变量读取配置
// 约束：数值解析失败时回退默认值，不中断启动；布尔值仅识别 "true"
func Load() Config {
	c := Config{
		Addr:           str("ADDR", ":8080"),
		APIBase:        strings.TrimSuffix(str("API_BASE", "/api"), "/"),
		UIDir:          str("UI_DIST", filepath.Join("ui", "dist")),
		DataDir:        str("DATA_DIR", "data"),
		PackageBaseURL: strings.TrimSuffix(os.Getenv("PACKAGE_BASE_URL"), "/"),
		PackageDir:     os.Getenv("PACKAGE_DIR"),
		KeepPackages:   os.Getenv("KEEP_PACKAGES") == "true",
		RegionsFile:    os.Getenv("REGIONS_FILE"),
		DefaultRegion:  os.Getenv("DEFAULT_REGION"),

		MinZoom:       num("MIN_ZOOM", 9),
		MaxNativeZoom: num("MAX_NATIVE_ZOOM", 13),
		CacheSize:     num("TILE_CACHE_SIZE", 2048),
		CacheTTL:      time.Duration(num("TILE_CACHE_TTL_S", 3600)) * time.Second,
		CacheBackend:  str("TILE_CACHE_BACKEND", "memory"),

		StoreBackend: str("STORE_BACKEND", "file"),
		GeoIPPath:    os.Getenv("GEOIP_PATH"),
		AdminToken:   os.Getenv("ADMIN_TOKEN"),
		AdminAllow:   list("ADMIN_ALLOW"),
		RealIPHeader: strings.TrimSpace(os.Getenv("REAL_IP_HEADER")),

		DownloadTimeout: time.Duration(num("DOWNLOAD_TIMEOUT_S", 600)) * time.Second,

		RateLimitEnabled: os.Getenv("RATE_LIMIT_ENABLED") == "true",
		RateLimitQPS:     num("RATE_LIMIT_QPS", 500),

		TLSEnable: os.Getenv("TLS_ENABLE") == "true",
	}
	if c.APIBase == "" {
		c.APIBase = "/api"
	}
	c.TLSCertPath = str("TLS_CERT_PATH", filepath.Join(c.DataDir, "certs", "server.crt"))
	c.TLSKeyPath = str("TLS_KEY_PATH", filepath.Join(c.DataDir, "certs", "server.key"))
	if c.PackageBaseURL == "" && c.PackageDir == "" {
		c.PackageDir = filepath.Join(c.DataDir, "bundle")
	}
	c.Postgres = Postgres{
		Host:         str("PG_HOST", "localhost"),
		Port:         str("PG_PORT", "5432"),
		User:         str("PG_USER", "postgres"),
		Password:     os.Getenv("PG_PASSWORD"),
		DB:           str("PG_DB", "sealevel"),
		SSLMode:      str("PG_SSLMODE", "disable"),
		MaxOpenConns: num("PG_MAX_OPEN_CONNS", 10),
		MaxIdleConns: num("PG_MAX_IDLE_CONNS", 5),
	}
	c.Redis = Redis{
		Host:     str("REDIS_HOST", "127.0.0.1"),
		Port:     str("REDIS_PORT", "6379"),
		Password: os.Getenv("REDIS_PASS"),
		DB:       num("REDIS_DB", 0),
	}
	return c
}

func str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func list(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func num(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
