package validator

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/api/contract"
	"github.com/Behyna/sms-services/creditgateway/internal/constants"
	"github.com/Behyna/sms-services/creditgateway/internal/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const (
	sep = " and "
)

type Error struct {
	Error       bool
	FailedField string
	Tag         string
	Value       interface{}
}

type IXValidator interface {
	Validator(data any, message string, c *fiber.Ctx) (responseErr contract.Response)
	Validate(data interface{}) []Error
}

type XValidator struct {
	validator *validator.Validate
	metrics   *metrics.Metrics
}

func NewXValidator(validate *validator.Validate, metrics *metrics.Metrics) IXValidator {
	for key, function := range valid {
		_ = validate.RegisterValidation(key, function)
	}

	// Amounts arrive as decimals; numeric tags such as gt=0 compare them as floats.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	return &XValidator{
		validator: validate,
		metrics:   metrics,
	}
}

func (x XValidator) Validator(data any, message string, c *fiber.Ctx) (responseErr contract.Response) {
	start := time.Now()

	if err := c.BodyParser(data); err != nil {
		c.Status(http.StatusBadRequest)
		return contract.Response{
			Code:    "1",
			Message: constants.GetErrorMessage(constants.ErrCodeInvalidRequestBody),
		}
	}

	if errs := x.Validate(data); len(errs) > 0 && errs[0].Error {
		errMsgs := make([]string, 0, len(errs))
		for _, err := range errs {
			errMsgs = append(errMsgs, fmt.Sprintf(message, err.FailedField))
			x.metrics.RecordValidationError(err.FailedField, err.Tag)
		}
		c.Status(http.StatusUnprocessableEntity)
		x.metrics.RecordValidationDuration("validation_error", time.Since(start))

		return contract.Response{
			Code:    "1",
			Message: strings.Join(errMsgs, sep),
		}
	}

	x.metrics.RecordValidationDuration("validation_success", time.Since(start))
	return responseErr
}

func (x XValidator) Validate(data interface{}) []Error {
	var validationErrors []Error

	err := x.validator.Struct(data)
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	for _, err := range errs {
		validationErrors = append(validationErrors, Error{
			Error:       true,
			FailedField: err.Field(),
			Tag:         err.Tag(),
			Value:       err.Value(),
		})
	}
	return validationErrors
}
