package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/notify"
)

// ClientInput is the payload for creating or updating a client.
type ClientInput struct {
	Name  string `json:"name"  validate:"required,max=120"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
	Phone string `json:"phone" validate:"required,phone"`
}

// OrderInput is the payload for creating or updating an order's
// descriptive fields.
type OrderInput struct {
	ProductDescription string `json:"productDescription" validate:"required,max=255"`
	Store              string `json:"store"              validate:"required,max=120"`
	TrackingNumber     string `json:"trackingNumber"     validate:"max=64"`
}

func (in ClientInput) normalized() ClientInput {
	return ClientInput{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
		Phone: strings.TrimSpace(in.Phone),
	}
}

func (in OrderInput) normalized() OrderInput {
	return OrderInput{
		ProductDescription: strings.TrimSpace(in.ProductDescription),
		Store:              strings.TrimSpace(in.Store),
		TrackingNumber:     strings.TrimSpace(in.TrackingNumber),
	}
}

func (in OrderInput) toDomain() domain.OrderInput {
	return domain.OrderInput{
		ProductDescription: in.ProductDescription,
		Store:              in.Store,
		TrackingNumber:     in.TrackingNumber,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := notify.NormalizePhone(fl.Field().String())
		return err == nil
	})
	return v
}

// fieldSentinels maps payload fields to their sentinel errors.
var fieldSentinels = map[string]error{
	"name":               ErrInvalidName,
	"email":              ErrInvalidEmail,
	"phone":              ErrInvalidPhone,
	"productDescription": ErrInvalidOrder,
	"store":              ErrInvalidOrder,
	"trackingNumber":     ErrInvalidOrder,
}

// check validates v and converts the first failure into a *ValidationError.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	sentinel, ok := fieldSentinels[fe.Field()]
	if !ok {
		sentinel = ErrInvalidOrder
	}
	return invalid(fe.Field(), sentinel, reason(fe))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "phone":
		return fmt.Sprintf("must contain at least %d digits and only + - ( ) or spaces as separators", notify.MinPhoneDigits)
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}
