package eduportal_config

import (
	"time"

	"github.com/NordCoder/EduPortal/internal/obs"
	"github.com/NordCoder/EduPortal/internal/outbox"
	pg "github.com/NordCoder/EduPortal/internal/repository/postgres"
	"github.com/NordCoder/EduPortal/internal/services/notification"
	"github.com/NordCoder/EduPortal/internal/transport/email"
	"github.com/NordCoder/EduPortal/internal/transport/sms"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    "eduportal/" + c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

type Kafka struct {
	Enable       bool          `mapstructure:"enable"`
	Brokers      []string      `mapstructure:"brokers"`
	ChangeTopic  string        `mapstructure:"change_topic"`
	Partitions   int           `mapstructure:"partitions"`
	Replication  int           `mapstructure:"replication"`
	FeedGroupID  string        `mapstructure:"feed_group_id"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Config struct {
	App          App                 `mapstructure:"app"`
	Server       Server              `mapstructure:"server"`
	DB           pg.Config           `mapstructure:"db"`
	OTEL         OTEL                `mapstructure:"otel"`
	Log          Log                 `mapstructure:"log"`
	Auth         Auth                `mapstructure:"auth"`
	Kafka        Kafka               `mapstructure:"kafka"`
	Outbox       outbox.RunnerConfig `mapstructure:"outbox"`
	Notification notification.Config `mapstructure:"notification"`
	SMS          sms.Config          `mapstructure:"sms"`
	Email        email.Config        `mapstructure:"email"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
