package kakaogateway

import "time"

type Config struct {
	BaseURL          string        `mapstructure:"base_url"`
	ClientID         string        `mapstructure:"client_id"`
	ClientSecret     string        `mapstructure:"client_secret"`
	SenderKey        string        `mapstructure:"sender_key"`
	KakaoSenderKey   string        `mapstructure:"kakao_sender_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	TokenRefreshSkew time.Duration `mapstructure:"token_refresh_skew"`
}
