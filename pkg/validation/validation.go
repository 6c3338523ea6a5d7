// Package validation binds and checks API request parameters.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// TrainRequest carries the days window of POST /train.
type TrainRequest struct {
	Days int `json:"days" default:"90" validate:"min=1,max=3650"`
}

// TrainBody is the wire form of POST /train. Days is a pointer so an
// explicit 0 can be told apart from an absent field.
type TrainBody struct {
	Days *int `json:"days"`
}

// ForecastQuery carries the days parameter of GET /predict-stock-usage.
type ForecastQuery struct {
	Days int `json:"days" default:"30" validate:"min=1,max=365"`
}

// Struct fills zero fields from their default tags and validates req.
// Failures wrap models.ErrInvalidParameter.
func Struct(req interface{}) error {
	if err := defaults.Set(req); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidParameter, err)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", models.ErrInvalidParameter, describe(err))
	}
	return nil
}

// ParseForecastDays parses the raw days query value. An empty value selects
// the default horizon.
func ParseForecastDays(raw string) (int, error) {
	q := ForecastQuery{}
	raw = strings.TrimSpace(raw)
	if raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: days must be an integer, got %q", models.ErrInvalidParameter, raw)
		}
		// 0 is rejected explicitly; defaults would silently replace it.
		if days == 0 {
			return 0, fmt.Errorf("%w: days must be at least 1", models.ErrInvalidParameter)
		}
		q.Days = days
	}
	if err := Struct(&q); err != nil {
		return 0, err
	}
	return q.Days, nil
}

// ParseTrainDays validates the days field of a train body. A missing field
// selects the default window.
func ParseTrainDays(body TrainBody) (int, error) {
	req := TrainRequest{}
	if body.Days != nil {
		if *body.Days == 0 {
			return 0, fmt.Errorf("%w: days must be at least 1", models.ErrInvalidParameter)
		}
		req.Days = *body.Days
	}
	if err := Struct(&req); err != nil {
		return 0, err
	}
	return req.Days, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, message(fe))
	}
	return strings.Join(msgs, "; ")
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
