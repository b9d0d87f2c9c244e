package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates per-subsystem configuration so main stays lean.
type Config struct {
	Service   Service
	HTTP      HTTP
	Kafka     Kafka
	Callback  Callback
	Postgres  Postgres
	Redis     Redis
	Providers Providers
}

// Service captures process-level identity and logging.
type Service struct {
	Name     string
	Version  string
	LogLevel string
}

// HTTP configures the health/metrics listener.
type HTTP struct {
	Addr string
}

// Kafka configures the inbound subscription and outbound publisher.
type Kafka struct {
	Brokers []string
	GroupID string

	TopicDocumentRequest string
	TopicDocumentResult  string
	TopicProofRequest    string
	TopicProofResult     string
	TopicHybridRequest   string

	// PublishTimeout bounds the wait for broker acknowledgment.
	PublishTimeout time.Duration
	// FlushTimeout bounds the outbound buffer drain during Stop.
	FlushTimeout time.Duration
	// EnsureTopics creates missing topics at startup via the admin API.
	EnsureTopics bool
}

// RequestTopics lists all inbound topics in subscription order.
func (k Kafka) RequestTopics() []string {
	return []string{k.TopicDocumentRequest, k.TopicProofRequest, k.TopicHybridRequest}
}

// Callback configures HTTP result delivery for the hybrid workflow.
type Callback struct {
	URL        string
	Timeout    time.Duration
	RetryCount int
}

// Postgres configures the embedding index store.
type Postgres struct {
	DSN string
}

// Redis configures the exact-duplicate cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ProviderMode selects live or mock capability providers at construction.
// The mode never changes mid-request; it is logged once at startup.
type ProviderMode string

const (
	ModeLive ProviderMode = "live"
	ModeMock ProviderMode = "mock"
)

// Providers configures capability provider clients.
type Providers struct {
	Mode ProviderMode

	// FetchTimeout bounds a single image download.
	FetchTimeout time.Duration

	// OpenAI-compatible endpoint for document reasoning (live mode).
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Service: Service{
			Name:     envStr("SERVICE_NAME", "veriflow"),
			Version:  envStr("SERVICE_VERSION", "1.0.0"),
			LogLevel: envStr("LOG_LEVEL", "info"),
		},
		HTTP: HTTP{
			Addr: envStr("HTTP_ADDR", ":8084"),
		},
		Kafka: Kafka{
			Brokers:              envList("KAFKA_BROKERS", "localhost:9092"),
			GroupID:              envStr("KAFKA_GROUP_ID", "veriflow-group"),
			TopicDocumentRequest: envStr("KAFKA_TOPIC_DOCUMENT_REQUEST", "document-verification-request"),
			TopicDocumentResult:  envStr("KAFKA_TOPIC_DOCUMENT_RESULT", "document-verification-result"),
			TopicProofRequest:    envStr("KAFKA_TOPIC_PROOF_REQUEST", "proof-verification-request"),
			TopicProofResult:     envStr("KAFKA_TOPIC_PROOF_RESULT", "proof-verification-result"),
			TopicHybridRequest:   envStr("KAFKA_TOPIC_HYBRID_REQUEST", "hybrid-reasoning-request"),
			PublishTimeout:       envDur("KAFKA_PUBLISH_TIMEOUT", 10*time.Second),
			FlushTimeout:         envDur("KAFKA_FLUSH_TIMEOUT", 5*time.Second),
			EnsureTopics:         envBool("KAFKA_ENSURE_TOPICS", false),
		},
		Callback: Callback{
			URL:        envStr("CALLBACK_URL", "http://localhost:8080/api/webhooks/hybrid-reasoning"),
			Timeout:    envDur("CALLBACK_TIMEOUT", 30*time.Second),
			RetryCount: envInt("CALLBACK_RETRY_COUNT", 3),
		},
		Postgres: Postgres{
			DSN: os.Getenv("VECTOR_DB_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDur("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDur("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Providers: Providers{
			Mode:         ProviderMode(envStr("PROVIDER_MODE", string(ModeMock))),
			FetchTimeout: envDur("IMAGE_FETCH_TIMEOUT", 30*time.Second),
			LLMAPIKey:    os.Getenv("LLM_API_KEY"),
			LLMBaseURL:   os.Getenv("LLM_BASE_URL"),
			LLMModel:     envStr("LLM_MODEL", "gpt-4o-mini"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key, fallback string) []string {
	raw := envStr(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
