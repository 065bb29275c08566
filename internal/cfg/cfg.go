package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/jimlawless/whereami"
)

type Config struct {
	Log       *LogCfg
	Http      *HTTPConfig
	Grpc      *GRPCConfig
	Db        *PGDBCfg
	Redis     *RedisCfg
	Kafka     *KafkaCfg
	Minio     *MinIOCfg
	Payment   *PaymentCfg
	Cors      *CorsCfg
	Reconcile *ReconcileCfg
}

type LogCfg struct {
	Service string
	Env     string
	Level   string
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	SwaggerHost  string
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

type PGDBCfg struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	ProductTTL  time.Duration
}

type KafkaCfg struct {
	Brokers           []string
	Topic             string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	BatchSize         int
}

// Enabled сообщает, настроена ли публикация событий в Kafka.
func (k *KafkaCfg) Enabled() bool {
	return k != nil && len(k.Brokers) > 0
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки MinIO
	BucketName        string // Бакет для архива уведомлений платёжного провайдера
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
	RetentionDays     int // 0 — архив хранится бессрочно
}

// Enabled сообщает, включено ли архивирование уведомлений.
func (m *MinIOCfg) Enabled() bool {
	return m != nil && m.MinioEndpoint != ""
}

// PaymentCfg — явная конфигурация интеграции с платёжным провайдером.
type PaymentCfg struct {
	BaseURL        string
	SecretKey      string // Bearer-ключ для исходящих запросов
	SigningSecret  string // Секрет для проверки подписи вебхуков
	RequestTimeout time.Duration
	MaxRetries     int
	Currency       string
	CallbackURL    string
}

type CorsCfg struct {
	StorefrontOrigin string
}

type ReconcileCfg struct {
	Interval   time.Duration
	PendingTTL time.Duration
	BatchSize  int
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load() (*Config, error) {
	db, err := loadPGDBCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	payment, err := loadPaymentCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	reconcile, err := loadReconcileCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Log:       loadLogCfg(),
		Http:      http,
		Grpc:      loadGRPCConfig(),
		Db:        db,
		Redis:     redis,
		Kafka:     kafka,
		Minio:     minio,
		Payment:   payment,
		Cors:      loadCorsCfg(),
		Reconcile: reconcile,
	}, nil
}

func loadLogCfg() *LogCfg {
	return &LogCfg{
		Service: getEnvOrDefault("SERVICE_NAME", "storefront-backend"),
		Env:     getEnvOrDefault("ENV", "dev"),
		Level:   getEnvOrDefault("LOG_LEVEL", "info"),
	}
}

func loadHTTPConfig() (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 30 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		return nil, e.Wrap("HTTP_READ_TIMEOUT", err)
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		return nil, e.Wrap("HTTP_WRITE_TIMEOUT", err)
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		return nil, e.Wrap("KEEP_ALIVE", err)
	}

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	return &HTTPConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		SwaggerHost:  getEnvOrDefault("SWAGGER_HOST", "localhost:"+port),
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadPGDBCfg() (*PGDBCfg, error) {
	const (
		defaultHost           = "localhost"
		defaultPort           = "5432"
		defaultSSLMode        = "disable"
		defaultMigrationsPath = "file://db/migrations"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		return nil, fmt.Errorf("POSTGRES_USER is required")
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD is required")
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		return nil, fmt.Errorf("POSTGRES_DB is required")
	}

	return &PGDBCfg{
		Host:           getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:           getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:           user,
		Password:       password,
		DBName:         dbName,
		SSLMode:        getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}, nil
}

func loadRedisCfg() (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultProductTTL   = 30 * time.Second
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		return nil, e.Wrap("REDIS_DB_ID", err)
	}

	maxRetries, err := parseIntEnv("REDIS_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		return nil, e.Wrap("REDIS_MAX_RETRIES", err)
	}

	dialTimeout, err := parseDurationEnv("REDIS_DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		return nil, e.Wrap("REDIS_DIAL_TIMEOUT", err)
	}

	readTimeout, err := parseDurationEnv("REDIS_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		return nil, e.Wrap("REDIS_READ_TIMEOUT", err)
	}

	writeTimeout, err := parseDurationEnv("REDIS_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		return nil, e.Wrap("REDIS_WRITE_TIMEOUT", err)
	}

	// Остатки меняются часто, поэтому TTL по умолчанию короткий
	productTTL, err := parseDurationEnv("PRODUCT_TTL", defaultProductTTL)
	if err != nil {
		return nil, e.Wrap("PRODUCT_TTL", err)
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:        getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
		ProductTTL:  productTTL,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultTopic             = "storefront.orders"
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultBatchSize         = 50
	)

	var brokers []string
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	batchSize, err := parseIntEnv("OUTBOX_BATCH_SIZE", defaultBatchSize)
	if err != nil {
		return nil, e.Wrap("OUTBOX_BATCH_SIZE", err)
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		BatchSize:         batchSize,
	}, nil
}

func loadMinIOCfg() (*MinIOCfg, error) {
	const (
		defaultUseSSL = false
		defaultBucket = "payment-notifications"
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		return nil, e.Wrap("MINIO_USE_SSL", err)
	}

	retentionDays, err := parseIntEnv("MINIO_ARCHIVE_RETENTION_DAYS", 0)
	if err != nil || retentionDays < 0 {
		return nil, e.Wrap("MINIO_ARCHIVE_RETENTION_DAYS", e.ErrIncorrectEnvVariable)
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnv("MINIO_ENDPOINT"),
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
		RetentionDays:     retentionDays,
	}, nil
}

func loadPaymentCfg() (*PaymentCfg, error) {
	const (
		defaultBaseURL        = "https://api.paystack.co"
		defaultRequestTimeout = 10 * time.Second
		defaultMaxRetries     = 3
		defaultCurrency       = "NGN"
	)

	secretKey := getEnv("PAYMENT_SECRET_KEY")
	if secretKey == "" {
		return nil, fmt.Errorf("PAYMENT_SECRET_KEY is required")
	}

	timeout, err := parseDurationEnv("PAYMENT_REQUEST_TIMEOUT", defaultRequestTimeout)
	if err != nil {
		return nil, e.Wrap("PAYMENT_REQUEST_TIMEOUT", err)
	}
	if timeout <= 0 {
		return nil, e.Wrap("PAYMENT_REQUEST_TIMEOUT", e.ErrIncorrectEnvVariable)
	}

	maxRetries, err := parseIntEnv("PAYMENT_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		return nil, e.Wrap("PAYMENT_MAX_RETRIES", err)
	}

	callbackURL := getEnv("PAYMENT_CALLBACK_URL")
	if callbackURL == "" {
		return nil, fmt.Errorf("PAYMENT_CALLBACK_URL is required")
	}

	return &PaymentCfg{
		BaseURL:        strings.TrimRight(getEnvOrDefault("PAYMENT_BASE_URL", defaultBaseURL), "/"),
		SecretKey:      secretKey,
		SigningSecret:  getEnvOrDefault("PAYMENT_WEBHOOK_SECRET", secretKey),
		RequestTimeout: timeout,
		MaxRetries:     maxRetries,
		Currency:       strings.ToUpper(getEnvOrDefault("PAYMENT_CURRENCY", defaultCurrency)),
		CallbackURL:    callbackURL,
	}, nil
}

func loadCorsCfg() *CorsCfg {
	return &CorsCfg{
		StorefrontOrigin: getEnvOrDefault("STOREFRONT_ORIGIN", "http://localhost:3001"),
	}
}

func loadReconcileCfg() (*ReconcileCfg, error) {
	const (
		defaultInterval   = time.Minute
		defaultPendingTTL = 30 * time.Minute
		defaultBatchSize  = 20
	)

	interval, err := parseDurationEnv("RECONCILE_INTERVAL", defaultInterval)
	if err != nil {
		return nil, e.Wrap("RECONCILE_INTERVAL", err)
	}

	pendingTTL, err := parseDurationEnv("RECONCILE_PENDING_TTL", defaultPendingTTL)
	if err != nil {
		return nil, e.Wrap("RECONCILE_PENDING_TTL", err)
	}

	batchSize, err := parseIntEnv("RECONCILE_BATCH_SIZE", defaultBatchSize)
	if err != nil {
		return nil, e.Wrap("RECONCILE_BATCH_SIZE", err)
	}

	return &ReconcileCfg{
		Interval:   interval,
		PendingTTL: pendingTTL,
		BatchSize:  batchSize,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := getEnv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := getEnv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := getEnv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}
