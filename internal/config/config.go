package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/Behyna/sms-services/creditgateway/pkg/idempotent"
	"github.com/Behyna/sms-services/creditgateway/pkg/kakaogateway"
	"github.com/Behyna/sms-services/creditgateway/pkg/mq"
	"github.com/Behyna/sms-services/creditgateway/pkg/mysql"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const envPrefix = "CREDITGATEWAY"

type Config struct {
	API      API                 `mapstructure:"api"`
	Database mysql.Config        `mapstructure:"database"`
	RabbitMQ mq.Config           `mapstructure:"rabbitmq"`
	Redis    idempotent.Config   `mapstructure:"redis"`
	Gateway  kakaogateway.Config `mapstructure:"gateway"`
	Billing  Billing             `mapstructure:"billing"`
	Webhook  Webhook             `mapstructure:"webhook"`
	Dispatch Dispatch            `mapstructure:"dispatch"`
}

type API struct {
	Port string `mapstructure:"port"`
}

type Billing struct {
	DefaultCosts DefaultCosts `mapstructure:"default_costs"`
	AutoCharge   AutoCharge   `mapstructure:"auto_charge"`
}

// DefaultCosts are the per-channel unit costs, in credits, stamped on newly
// created pools.
type DefaultCosts struct {
	Alimtalk decimal.Decimal `mapstructure:"alimtalk"`
	SMS      decimal.Decimal `mapstructure:"sms"`
	LMS      decimal.Decimal `mapstructure:"lms"`
	MMS      decimal.Decimal `mapstructure:"mms"`
}

type AutoCharge struct {
	Enabled   bool            `mapstructure:"enabled"`
	Threshold decimal.Decimal `mapstructure:"threshold"`
	Amount    decimal.Decimal `mapstructure:"amount"`
}

type Webhook struct {
	Secret        string `mapstructure:"secret"`
	HeaderName    string `mapstructure:"header_name"`
	RetryAttempts int    `mapstructure:"retry_attempts"`
}

type Dispatch struct {
	PublishInterval time.Duration `mapstructure:"publish_interval"`
	BatchSize       int           `mapstructure:"batch_size"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
}

func Load() (cfg *Config, err error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath("./config")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	err = v.ReadInConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}

	err = v.Unmarshal(&cfg, viper.DecodeHook(decimalHook()))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", ":8080")
	v.SetDefault("webhook.header_name", "X-Signature")
	v.SetDefault("webhook.retry_attempts", 3)
	v.SetDefault("dispatch.publish_interval", 30*time.Second)
	v.SetDefault("dispatch.batch_size", 100)
	v.SetDefault("dispatch.stale_after", 5*time.Minute)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("gateway.token_refresh_skew", 30*time.Second)
}

func decimalHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		func(from reflect.Type, to reflect.Type, data any) (any, error) {
			if to != reflect.TypeOf(decimal.Decimal{}) {
				return data, nil
			}

			switch v := data.(type) {
			case string:
				return decimal.NewFromString(v)
			case int:
				return decimal.NewFromInt(int64(v)), nil
			case int64:
				return decimal.NewFromInt(v), nil
			case float64:
				return decimal.NewFromFloat(v), nil
			default:
				return data, nil
			}
		},
	)
}
