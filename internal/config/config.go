package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/coachhub/coach-chat/pkg/config"
	"github.com/coachhub/coach-chat/pkg/database"
	"github.com/coachhub/coach-chat/pkg/log"
	"github.com/coachhub/coach-chat/pkg/pubsub"
)

type Config struct {
	NodeID    string `mapstructure:"node_id"`
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	PubSub    PubSubConfig `mapstructure:"pubsub"`
	Auth      AuthConfig
	WebSocket WebSocketConfig
	Fanout    FanoutConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type PubSubConfig struct {
	Driver        string
	ChannelPrefix string `mapstructure:"channel_prefix"`
	Kafka         KafkaConfig
}

type KafkaConfig struct {
	Brokers    string
	GroupID    string `mapstructure:"group_id"`
	Partitions int
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type FanoutConfig struct {
	ExemptAuthor     bool          `mapstructure:"exempt_author"`
	MaxParallelLoads int           `mapstructure:"max_parallel_loads"`
	PublishTimeout   time.Duration `mapstructure:"publish_timeout"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Server.ShutdownTimeout = parseDuration(v, "server.shutdown_timeout", 10*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Fanout.PublishTimeout = parseDuration(v, "fanout.publish_timeout", 2*time.Second)

	if cfg.NodeID == "" {
		cfg.NodeID = pkgconfig.GetEnv("HOSTNAME", "chat-local")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "coach_chat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/chat.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("pubsub.driver", pubsub.DriverNone)
	v.SetDefault("pubsub.channel_prefix", "chat")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "coach-chat")
	v.SetDefault("pubsub.kafka.partitions", 8)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("fanout.exempt_author", false)
	v.SetDefault("fanout.max_parallel_loads", 8)
	v.SetDefault("fanout.publish_timeout", "2s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("node_id", "")
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.issuer", "JWT_ISSUER")
	v.BindEnv("fanout.exempt_author", "FANOUT_EXEMPT_AUTHOR")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("node_id", "NODE_ID")
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}

// DatabaseOptions converts the database section for pkg/database.
func (c *Config) DatabaseOptions() *database.Config {
	return &database.Config{
		Driver:          c.Database.Driver,
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		DBName:          c.Database.DBName,
		SSLMode:         c.Database.SSLMode,
		FilePath:        c.Database.FilePath,
		MaxIdleConns:    c.Database.MaxIdleConns,
		MaxOpenConns:    c.Database.MaxOpenConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		LogLevel:        c.Database.LogLevel,
		SlowThreshold:   200 * time.Millisecond,
	}
}

// PubSubOptions converts the relay section for pkg/pubsub. The Redis driver
// reuses the top-level redis connection settings. Kafka consumer groups are
// made per node so every instance receives every relayed event.
func (c *Config) PubSubOptions() pubsub.Config {
	cfg := pubsub.DefaultConfig()
	cfg.Driver = c.PubSub.Driver
	cfg.ChannelPrefix = c.PubSub.ChannelPrefix
	cfg.Redis.Address = c.Redis.Address
	cfg.Redis.Password = c.Redis.Password
	cfg.Redis.DB = c.Redis.DB
	cfg.Kafka = pubsub.KafkaConfig{
		Brokers:    c.PubSub.Kafka.Brokers,
		GroupID:    c.PubSub.Kafka.GroupID + "-" + c.NodeID,
		Partitions: c.PubSub.Kafka.Partitions,
	}
	return cfg
}

// LogOptions converts the log section for pkg/log.
func (c *Config) LogOptions(service string) log.Config {
	return log.Config{
		Level:       c.Log.Level,
		Pretty:      c.Log.Pretty,
		ServiceName: service,
		NodeID:      c.NodeID,
	}
}
