package reminder_config

import (
	"time"

	"github.com/NordCoder/EduPortal/internal/obs"
	pginfra "github.com/NordCoder/EduPortal/internal/repository/postgres"
	"github.com/NordCoder/EduPortal/internal/services/notification"
	"github.com/NordCoder/EduPortal/internal/transport/email"
	"github.com/NordCoder/EduPortal/internal/transport/sms"
)

type SchedCfg struct {
	Tick           time.Duration `mapstructure:"tick"`
	Window         time.Duration `mapstructure:"window"`
	BatchLimit     int           `mapstructure:"batch_limit"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	PublishChanges bool          `mapstructure:"publish_changes"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
}

type Config struct {
	DB           pginfra.Config      `mapstructure:"db"`
	Sched        SchedCfg            `mapstructure:"sched"`
	Log          obs.LogConfig       `mapstructure:"log"`
	OTEL         obs.OTELConfig      `mapstructure:"otel"`
	Notification notification.Config `mapstructure:"notification"`
	SMS          sms.Config          `mapstructure:"sms"`
	Email        email.Config        `mapstructure:"email"`
}
