package validator

import (
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/go-playground/validator/v10"
)

const (
	StrategyTag = "strategy"
	ChannelTag  = "channel"
)

var valid = map[string]func(fl validator.FieldLevel) bool{
	StrategyTag: ValidateStrategy,
	ChannelTag:  ValidateChannel,
}

func ValidateStrategy(fl validator.FieldLevel) bool {
	switch model.Strategy(fl.Field().String()) {
	case model.StrategyAlimtalkFirst, model.StrategySMSOnly, model.StrategyCostOptimized:
		return true
	default:
		return false
	}
}

func ValidateChannel(fl validator.FieldLevel) bool {
	_, err := model.ParseChannel(fl.Field().String())
	return err == nil
}
