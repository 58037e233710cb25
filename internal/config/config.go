// 包 config 负责加载与校验应用配置：
// - settings.yaml（可缺省，仅用环境变量也能运行）
// - .env 与环境变量覆盖（令牌/用户名等敏感值）
// 对外提供结构体 Config 及默认值/合法性校验。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	X            X        `yaml:"X"`
	Source       Source   `yaml:"SOURCE"`
	Notion       Notion   `yaml:"NOTION"`
	Summary      Summary  `yaml:"SUMMARY"`
	SimpleMode   bool     `yaml:"SIMPLE_MODE"`
	Database     Database `yaml:"DATABASE"`
	JournalClean int      `yaml:"JOURNAL_CLEAN"` // 运行日志保留天数，0 表示不清理
	Metrics      Metrics  `yaml:"METRICS"`
	HTTP         HTTP     `yaml:"HTTP"`
	Proxy        Proxy    `yaml:"PROXY"`
	LogLevel     string   `yaml:"LOG_LEVEL"`
	LogFormat    string   `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale    string   `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor     string   `yaml:"LOG_COLOR"`  // auto|always|never
}

type X struct {
	BaseURL     string `yaml:"base_url"`
	BearerToken string `yaml:"bearer_token"`
	Username    string `yaml:"username"`
	MaxResults  int    `yaml:"max_results"`
	// StatusBaseURL 用于拼接原文链接：<StatusBaseURL>/<username>/status/<id>
	StatusBaseURL string `yaml:"status_base_url"`
}

type Source struct {
	Type    string `yaml:"type"`     // x|feed
	FeedURL string `yaml:"feed_url"` // 支持 {username} 占位
}

type Notion struct {
	BaseURL    string     `yaml:"base_url"`
	Token      string     `yaml:"token"`
	DatabaseID string     `yaml:"database_id"`
	Version    string     `yaml:"version"`
	Properties Properties `yaml:"properties"`
}

// Properties 为目标数据库的属性名，默认与现有数据库一致。
type Properties struct {
	Title     string `yaml:"title"`
	Category  string `yaml:"category"`
	Summary   string `yaml:"summary"`
	SourceURL string `yaml:"source_url"`
	ToolURL   string `yaml:"tool_url"`
	Date      string `yaml:"date"`
	Author    string `yaml:"author"`
	Read      string `yaml:"read"`
}

type Summary struct {
	Provider string        `yaml:"provider"` // truncate|gemini
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Database struct {
	Type string `yaml:"type"` // sqlite|none
	DSN  string `yaml:"dsn"`
}

type Metrics struct {
	Pushgateway string `yaml:"pushgateway"`
	Job         string `yaml:"job"`
}

type HTTP struct {
	Timeout time.Duration `yaml:"timeout"`
	Retry   int           `yaml:"retry"` // 仅用于订阅源 GET，API 写入始终只尝试一次
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// 环境变量名
const (
	EnvBearerToken   = "X_BEARER_TOKEN"
	envBearerCompat  = "BEARER_TOKEN"
	EnvUsername      = "X_USERNAME"
	EnvNotionToken   = "NOTION_API_KEY"
	EnvNotionDB      = "NOTION_DATABASE_ID"
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	MaxLikedResults  = 50
	minLikedResults  = 10
	defaultStatusURL = "https://x.com"
)

// Load 读取 settings.yaml（文件不存在时使用空配置），加载 envFile 后应用环境变量覆盖，
// 最后进行默认值填充与校验。envFile 为空时跳过 .env。
func Load(path, envFile string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
			}
		}
	}
	if envFile != "" {
		// .env 不存在不是错误；已存在的环境变量不会被覆盖
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env %s: %w", envFile, err)
		}
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.X.BearerToken, EnvBearerToken, envBearerCompat)
	set(&c.X.Username, EnvUsername)
	set(&c.Notion.Token, EnvNotionToken)
	set(&c.Notion.DatabaseID, EnvNotionDB)
	set(&c.Summary.APIKey, EnvGeminiAPIKey)
}

// Validate 负责合法性检查与默认值设置。用户名缺失不在此处报错，由同步流程作为致命错误处理。
func (c *Config) Validate() error {
	c.X.Username = strings.TrimPrefix(strings.TrimSpace(c.X.Username), "@")
	if c.X.MaxResults < 0 {
		return errors.New("X.max_results must be >= 0")
	}
	if c.X.MaxResults == 0 || c.X.MaxResults > MaxLikedResults {
		c.X.MaxResults = MaxLikedResults
	}
	if c.X.MaxResults < minLikedResults {
		c.X.MaxResults = minLikedResults
	}
	if c.X.BaseURL == "" {
		c.X.BaseURL = "https://api.twitter.com"
	}
	if c.X.StatusBaseURL == "" {
		c.X.StatusBaseURL = defaultStatusURL
	}
	c.X.StatusBaseURL = strings.TrimSuffix(c.X.StatusBaseURL, "/")

	c.Source.Type = strings.ToLower(strings.TrimSpace(c.Source.Type))
	switch c.Source.Type {
	case "":
		c.Source.Type = "x"
	case "x":
	case "feed":
		if c.Source.FeedURL == "" {
			return errors.New("SOURCE.feed_url is required when SOURCE.type=feed")
		}
	default:
		return fmt.Errorf("unsupported source type: %s", c.Source.Type)
	}

	if c.Notion.BaseURL == "" {
		c.Notion.BaseURL = "https://api.notion.com"
	}
	if c.Notion.Version == "" {
		c.Notion.Version = "2022-06-28"
	}
	c.Notion.Properties.fillDefaults()

	c.Summary.Provider = strings.ToLower(strings.TrimSpace(c.Summary.Provider))
	switch c.Summary.Provider {
	case "":
		c.Summary.Provider = "truncate"
	case "truncate", "gemini":
	default:
		return fmt.Errorf("unsupported summary provider: %s", c.Summary.Provider)
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" && c.Database.Type != "none" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./journal.db"
	}
	if c.JournalClean < 0 {
		return errors.New("JOURNAL_CLEAN must be >= 0")
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "x-notion-sync"
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 20 * time.Second
	}
	if c.HTTP.Retry < 0 {
		c.HTTP.Retry = 0
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// CheckCredentials 校验写入与拉取所需的令牌；dry-run 时不需要 Notion 令牌。
func (c *Config) CheckCredentials(dryRun bool) error {
	var missing []string
	if c.Source.Type == "x" && c.X.BearerToken == "" {
		missing = append(missing, EnvBearerToken)
	}
	if !dryRun {
		if c.Notion.Token == "" {
			missing = append(missing, EnvNotionToken)
		}
		if c.Notion.DatabaseID == "" {
			missing = append(missing, EnvNotionDB)
		}
	}
	if c.Summary.Provider == "gemini" && c.Summary.APIKey == "" {
		missing = append(missing, EnvGeminiAPIKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (p *Properties) fillDefaults() {
	def := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	def(&p.Title, "Name")
	def(&p.Category, "类型")
	def(&p.Summary, "摘要")
	def(&p.SourceURL, "原文链接")
	def(&p.ToolURL, "工具链接")
	def(&p.Date, "时间")
	def(&p.Author, "来源")
	def(&p.Read, "已读")
}
