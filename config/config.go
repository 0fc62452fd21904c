package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	GRPC          GRPCConfig          `yaml:"grpc"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	AMQP          AMQPConfig          `yaml:"amqp"`
	PubNub        PubNubConfig        `yaml:"pubnub"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	Seats         SeatsConfig         `yaml:"seats"`
	CheckIn       CheckInConfig       `yaml:"checkin"`
	Notifications NotificationsConfig `yaml:"notifications"`
	RateLimit     RateLimitConfig     `yaml:"ratelimit"`
	Worker        WorkerConfig        `yaml:"worker"`
	Log           LogConfig           `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	BoardingPassTopic  string   `yaml:"boarding_pass_topic"`
	GroupID            string   `yaml:"group_id"`
}

type AMQPConfig struct {
	URL                string `yaml:"url"`
	NotificationsQueue string `yaml:"notifications_queue"`
	BoardingPassQueue  string `yaml:"boarding_pass_queue"`
}

type PubNubConfig struct {
	PublishKey   string `yaml:"publish_key"`
	SubscribeKey string `yaml:"subscribe_key"`
	UserID       string `yaml:"user_id"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// StorageConfig selects the booking/flight store. "memory" loads SeedFile
// into an in-process store for local runs.
type StorageConfig struct {
	Driver   string `yaml:"driver"`
	SeedFile string `yaml:"seed_file"`
}

type SeatsConfig struct {
	FlightCacheTTL  time.Duration `yaml:"flight_cache_ttl"`
	SeatMapCacheTTL time.Duration `yaml:"seat_map_cache_ttl"`
}

type CheckInConfig struct {
	OpensBefore        time.Duration `yaml:"opens_before"`
	ClosesBefore       time.Duration `yaml:"closes_before"`
	BoardingBefore     time.Duration `yaml:"boarding_before"`
	AutoAssignAttempts int           `yaml:"auto_assign_attempts"`
}

type NotificationsConfig struct {
	Transport string        `yaml:"transport"`
	QueueSize int           `yaml:"queue_size"`
	Workers   int           `yaml:"workers"`
	Timeout   time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Capacity       int           `yaml:"capacity"`
	RefillTokens   int           `yaml:"refill_tokens"`
	RefillInterval time.Duration `yaml:"refill_interval"`
	TTL            time.Duration `yaml:"ttl"`
}

type WorkerConfig struct {
	Transport string `yaml:"transport"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads .env (if present) into the process environment, parses
// the YAML file at path, applies environment overrides and defaults, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&c.Database.Password, "DATABASE_PASSWORD")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Auth.JWTSecret, "JWT_SECRET")
	override(&c.PubNub.PublishKey, "PUBNUB_PUBLISH_KEY")
	override(&c.PubNub.SubscribeKey, "PUBNUB_SUBSCRIBE_KEY")
	override(&c.AMQP.URL, "AMQP_URL")
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Seats.FlightCacheTTL == 0 {
		c.Seats.FlightCacheTTL = 5 * time.Minute
	}
	if c.Seats.SeatMapCacheTTL == 0 {
		c.Seats.SeatMapCacheTTL = 10 * time.Second
	}
	if c.CheckIn.OpensBefore == 0 {
		c.CheckIn.OpensBefore = 24 * time.Hour
	}
	if c.CheckIn.ClosesBefore == 0 {
		c.CheckIn.ClosesBefore = time.Hour
	}
	if c.CheckIn.BoardingBefore == 0 {
		c.CheckIn.BoardingBefore = 30 * time.Minute
	}
	if c.CheckIn.AutoAssignAttempts == 0 {
		c.CheckIn.AutoAssignAttempts = 3
	}
	if c.Notifications.Transport == "" {
		c.Notifications.Transport = "kafka"
	}
	if c.Notifications.QueueSize == 0 {
		c.Notifications.QueueSize = 256
	}
	if c.Notifications.Workers == 0 {
		c.Notifications.Workers = 2
	}
	if c.Notifications.Timeout == 0 {
		c.Notifications.Timeout = 5 * time.Second
	}
	if c.Kafka.NotificationsTopic == "" {
		c.Kafka.NotificationsTopic = "checkin.notifications"
	}
	if c.Kafka.BoardingPassTopic == "" {
		c.Kafka.BoardingPassTopic = "checkin.boarding_pass_email"
	}
	if c.AMQP.NotificationsQueue == "" {
		c.AMQP.NotificationsQueue = "checkin.notifications"
	}
	if c.AMQP.BoardingPassQueue == "" {
		c.AMQP.BoardingPassQueue = "checkin.boarding_pass_email"
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 20
	}
	if c.RateLimit.RefillTokens == 0 {
		c.RateLimit.RefillTokens = 1
	}
	if c.RateLimit.RefillInterval == 0 {
		c.RateLimit.RefillInterval = 3 * time.Second
	}
	if c.RateLimit.TTL == 0 {
		c.RateLimit.TTL = 10 * time.Minute
	}
	if c.Worker.Transport == "" {
		c.Worker.Transport = c.Notifications.Transport
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
	case "memory":
		if c.Storage.SeedFile == "" {
			return errors.New("storage.seed_file is required for the memory driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	for _, t := range []string{c.Notifications.Transport, c.Worker.Transport} {
		switch t {
		case "kafka", "amqp", "none":
		default:
			return fmt.Errorf("unknown notification transport %q", t)
		}
	}
	if c.CheckIn.ClosesBefore >= c.CheckIn.OpensBefore {
		return errors.New("checkin.closes_before must be shorter than checkin.opens_before")
	}
	if c.CheckIn.AutoAssignAttempts < 1 {
		return errors.New("checkin.auto_assign_attempts must be positive")
	}
	if c.Notifications.Workers < 1 || c.Notifications.QueueSize < 1 {
		return errors.New("notifications.workers and notifications.queue_size must be positive")
	}
	if c.Notifications.Transport == "kafka" && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required for the kafka transport")
	}
	return nil
}
