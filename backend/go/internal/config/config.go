package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// IndexConfig 定义了 Milvus 集合中向量索引的配置。
type IndexConfig struct {
	IndexType    string         `yaml:"indexType"`    // 索引类型 (例如: "HNSW", "IVF_FLAT", "AUTOINDEX")
	MetricType   string         `yaml:"metricType"`   // 相似度度量类型 (例如: "COSINE", "IP", "L2")
	Params       map[string]int `yaml:"params"`       // 索引参数 (例如: {"M": 8, "efConstruction": 96})
	SearchEf     int            `yaml:"searchEf"`     // HNSW 搜索参数 ef
	SearchNprobe int            `yaml:"searchNprobe"` // IVF 系列搜索参数 nprobe
}

// MilvusConfig 定义了 Milvus 数据库的连接和集合配置。
type MilvusConfig struct {
	Address          string      `yaml:"address"`          // Milvus 服务地址
	Username         string      `yaml:"username"`         // 用户名 (可选)
	Password         string      `yaml:"password"`         // 密码 (可选)
	CollectionPrefix string      `yaml:"collectionPrefix"` // 每个租户集合名称的前缀
	Dim              int         `yaml:"dim"`              // 向量维度，必须与 embedding 模型一致
	TextMaxLength    int         `yaml:"textMaxLength"`    // 文本字段的最大长度
	Index            IndexConfig `yaml:"index"`            // 索引配置
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
	AutoMigrate     bool   `yaml:"autoMigrate"`     // 启动时是否自动迁移表结构
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 存放上传文件的存储桶
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address    string `yaml:"address"`    // MongoDB 服务器地址
	Username   string `yaml:"username"`   // 用户名
	Password   string `yaml:"password"`   // 密码
	Database   string `yaml:"database"`   // 数据库名称
	Collection string `yaml:"collection"` // 问答历史所在的集合
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers         []string `yaml:"brokers"`         // Kafka Broker 地址列表
	IngestTopic     string   `yaml:"ingestTopic"`     // 异步入库任务主题
	DeadLetterTopic string   `yaml:"deadLetterTopic"` // 无法处理的入库任务主题
	GroupID         string   `yaml:"groupID"`         // ingest worker 的消费组
}

// Topics 返回需要预先创建的所有主题。
func (k KafkaConfig) Topics() []string {
	topics := make([]string, 0, 2)
	if k.IngestTopic != "" {
		topics = append(topics, k.IngestTopic)
	}
	if k.DeadLetterTopic != "" {
		topics = append(topics, k.DeadLetterTopic)
	}
	return topics
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Milvus  MilvusConfig `yaml:"milvus"`  // Milvus 数据库配置
	Redis   RedisConfig  `yaml:"redis"`   // Redis 数据库配置
	MySQL   MySQLConfig  `yaml:"mysql"`   // MySQL 数据库配置
	MinIO   MinIOConfig  `yaml:"minio"`   // MinIO 对象存储配置
	MongoDB MongoConfig  `yaml:"mongodb"` // MongoDB 数据库配置
	Kafka   KafkaConfig  `yaml:"kafka"`   // Kafka 消息队列配置
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的配置。
type ServerConfig struct {
	Address         string `yaml:"address"`         // 监听地址, 例如 ":8080"
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 优雅关闭的超时时间, 例如 "10s"
	MaxUploadMB     int    `yaml:"maxUploadMB"`     // 单个上传文件的最大体积
}

// AuthConfig 用于配置认证相关设置。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥, 租户 ID 取自 sub 声明
}

// ProviderConfig 描述了一个模型提供商的连接参数。
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey"`  // API 密钥
	Model   string `yaml:"model"`   // 模型名称
	BaseURL string `yaml:"baseURL"` // 服务地址 (ollama 或 OpenAI 兼容网关)
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider    string         `yaml:"provider"`    // LLM提供商 ("openai", "gemini", "ollama")
	Temperature *float32       `yaml:"temperature"` // 生成温度, 未配置时为 0.4, 显式写 0 表示确定性输出
	OpenAI      ProviderConfig `yaml:"openai"`
	Gemini      ProviderConfig `yaml:"gemini"`
	Ollama      ProviderConfig `yaml:"ollama"`
}

// Active 返回当前提供商的配置。
func (c LLMConfig) Active() ProviderConfig {
	return pickProvider(c.Provider, c.OpenAI, c.Gemini, c.Ollama)
}

// Temp 返回生成温度, 未设置时返回 0。
func (c LLMConfig) Temp() float32 {
	if c.Temperature == nil {
		return 0
	}
	return *c.Temperature
}

// EmbeddingConfig 包含了不同Embedding提供商的配置。
type EmbeddingConfig struct {
	Provider string         `yaml:"provider"` // Embedding提供商 ("openai", "gemini", "ollama")
	OpenAI   ProviderConfig `yaml:"openai"`
	Gemini   ProviderConfig `yaml:"gemini"`
	Ollama   ProviderConfig `yaml:"ollama"`
}

// Active 返回当前提供商的配置。
func (c EmbeddingConfig) Active() ProviderConfig {
	return pickProvider(c.Provider, c.OpenAI, c.Gemini, c.Ollama)
}

func pickProvider(name string, openai, gemini, ollama ProviderConfig) ProviderConfig {
	switch name {
	case "gemini":
		return gemini
	case "ollama":
		return ollama
	default:
		return openai
	}
}

// RAGConfig 包含检索增强生成流程的参数。
type RAGConfig struct {
	TopK                   int    `yaml:"topK"`                   // 每次检索返回的片段数
	MaxContextChars        int    `yaml:"maxContextChars"`        // 提示词上下文的最大字符数
	ChunkSize              int    `yaml:"chunkSize"`              // 单个片段的最大字符数
	ChunkOverlap           *int   `yaml:"chunkOverlap"`           // 相邻片段的重叠字符数, 显式写 0 表示不重叠
	EmbedBatchSize         int    `yaml:"embedBatchSize"`         // 每次 embedding 请求的最大文本数
	IngestConcurrency      int    `yaml:"ingestConcurrency"`      // 批量入库时并行处理的文件数
	GenerateWithoutContext bool   `yaml:"generateWithoutContext"` // 检索为空时是否仍调用模型
	TempDir                string `yaml:"tempDir"`                // 下载文件的临时目录, 为空时使用系统默认
	HistoryLimit           int    `yaml:"historyLimit"`           // 历史记录列表的最大条数
}

// Overlap 返回片段重叠字符数, 未设置时返回 0。
func (r RAGConfig) Overlap() int {
	if r.ChunkOverlap == nil {
		return 0
	}
	return *r.ChunkOverlap
}

// VectorStoreConfig 选择向量索引后端。
type VectorStoreConfig struct {
	Provider string `yaml:"provider"` // "milvus" 或 "memory"
}

// HistoryConfig 选择问答历史的存储后端。
type HistoryConfig struct {
	Backend string `yaml:"backend"` // "mysql" 或 "mongo"
}

// IngestionConfig 定义了异步入库的配置。
type IngestionConfig struct {
	JobStore string `yaml:"jobStore"` // "redis" 或 "memory"
	JobTTL   string `yaml:"jobTTL"`   // 任务状态的保留时间, 例如 "24h"
}

// OfficeConfig 定义了 DOCX 解析库的授权配置。
type OfficeConfig struct {
	LicenseKey string `yaml:"licenseKey"` // unioffice 计量授权密钥
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了按租户限流的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	MaxTenants  int               `yaml:"maxTenants"` // 同时保留令牌桶的租户数量上限
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App         AppInfo           `yaml:"app"`
	Logger      LoggerConfig      `yaml:"logger"`
	Server      ServerConfig      `yaml:"server"`
	Auth        AuthConfig        `yaml:"auth"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	RAG         RAGConfig         `yaml:"rag"`
	VectorStore VectorStoreConfig `yaml:"vectorStore"`
	History     HistoryConfig     `yaml:"history"`
	Ingestion   IngestionConfig   `yaml:"ingestion"`
	Office      OfficeConfig      `yaml:"office"`
	Databases   DatabaseConfigs   `yaml:"databases"`
	Middleware  MiddlewareConfig  `yaml:"middleware"`
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
// 在解析之前会尝试加载当前目录下的 .env 文件, 之后用环境变量覆盖敏感配置。
func LoadConfig(path string) (*AppConfig, error) {
	// .env 文件是可选的。
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 文件失败: %w", err)
	}

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	cfg, err := Parse(yamlFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse 解析 YAML 内容, 不做任何默认值处理。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv 使用环境变量覆盖密钥类配置, 避免密钥写入配置文件。
func (c *AppConfig) ApplyEnv(getenv func(string) string) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.Auth.JwtSecret, "JWT_SECRET")
	override(&c.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	override(&c.Embedding.OpenAI.APIKey, "OPENAI_API_KEY")
	override(&c.LLM.Gemini.APIKey, "GEMINI_API_KEY")
	override(&c.Embedding.Gemini.APIKey, "GEMINI_API_KEY")
	override(&c.Databases.MySQL.Password, "MYSQL_PASSWORD")
	override(&c.Databases.MinIO.SecretKey, "MINIO_SECRET_KEY")
	override(&c.Databases.Redis.Password, "REDIS_PASSWORD")
	override(&c.Office.LicenseKey, "UNIOFFICE_LICENSE_KEY")
}

// ApplyDefaults 为未配置的字段填充默认值。
func (c *AppConfig) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "aethena"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 50
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if c.LLM.Temperature == nil {
		t := float32(0.4)
		c.LLM.Temperature = &t
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.OpenAI.Model == "" {
		c.Embedding.OpenAI.Model = "text-embedding-3-small"
	}

	r := &c.RAG
	if r.TopK <= 0 {
		r.TopK = 5
	}
	if r.MaxContextChars <= 0 {
		r.MaxContextChars = 12000
	}
	if r.ChunkSize <= 0 {
		r.ChunkSize = 1000
	}
	switch {
	case r.ChunkOverlap == nil:
		overlap := 0
		if r.ChunkSize > 100 {
			overlap = 100
		}
		r.ChunkOverlap = &overlap
	case *r.ChunkOverlap < 0:
		overlap := 0
		r.ChunkOverlap = &overlap
	}
	if r.EmbedBatchSize <= 0 {
		r.EmbedBatchSize = 96
	}
	if r.IngestConcurrency <= 0 {
		r.IngestConcurrency = 1
	}
	if r.HistoryLimit <= 0 || r.HistoryLimit > 50 {
		r.HistoryLimit = 50
	}

	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = "milvus"
	}
	if c.History.Backend == "" {
		c.History.Backend = "mysql"
	}
	if c.Ingestion.JobStore == "" {
		c.Ingestion.JobStore = "redis"
	}
	if c.Ingestion.JobTTL == "" {
		c.Ingestion.JobTTL = "24h"
	}

	m := &c.Databases.Milvus
	if m.CollectionPrefix == "" {
		m.CollectionPrefix = "aethena_"
	}
	if m.Dim <= 0 {
		m.Dim = 1536
	}
	if m.TextMaxLength <= 0 {
		m.TextMaxLength = 8192
	}
	if m.Index.IndexType == "" {
		m.Index.IndexType = "HNSW"
	}
	if m.Index.MetricType == "" {
		m.Index.MetricType = "COSINE"
	}

	k := &c.Databases.Kafka
	if k.IngestTopic == "" {
		k.IngestTopic = "aethena.ingest"
	}
	if k.DeadLetterTopic == "" {
		k.DeadLetterTopic = "aethena.ingest.dlq"
	}
	if k.GroupID == "" {
		k.GroupID = "aethena-ingest-worker"
	}

	if c.Databases.MongoDB.Collection == "" {
		c.Databases.MongoDB.Collection = "query_history"
	}

	cb := &c.Middleware.CircuitBreaker
	if cb.FailureThreshold == 0 {
		cb.FailureThreshold = 5
	}
	if cb.SuccessThreshold == 0 {
		cb.SuccessThreshold = 1
	}
	if cb.Timeout == "" {
		cb.Timeout = "30s"
	}
	rl := &c.Middleware.RateLimiter
	if rl.MaxTenants <= 0 {
		rl.MaxTenants = 10000
	}
}

// Validate 检查配置之间的约束关系。
func (c *AppConfig) Validate() error {
	if c.RAG.Overlap() >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunkOverlap (%d) 必须小于 rag.chunkSize (%d)", c.RAG.Overlap(), c.RAG.ChunkSize)
	}
	if c.RAG.MaxContextChars < c.RAG.ChunkSize {
		return fmt.Errorf("rag.maxContextChars (%d) 不能小于 rag.chunkSize (%d)", c.RAG.MaxContextChars, c.RAG.ChunkSize)
	}
	switch c.VectorStore.Provider {
	case "milvus", "memory":
	default:
		return fmt.Errorf("不支持的向量库: %s", c.VectorStore.Provider)
	}
	switch c.History.Backend {
	case "mysql", "mongo":
	default:
		return fmt.Errorf("不支持的历史存储: %s", c.History.Backend)
	}
	switch c.Ingestion.JobStore {
	case "redis", "memory":
	default:
		return fmt.Errorf("不支持的任务状态存储: %s", c.Ingestion.JobStore)
	}
	if c.Middleware.RateLimiter.Enabled && c.Middleware.RateLimiter.TokenBucket.Capacity <= 0 {
		return errors.New("启用限流时 tokenBucket.capacity 必须大于 0")
	}
	return nil
}
