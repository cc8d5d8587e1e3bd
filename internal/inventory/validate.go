package inventory

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"inventory/internal/model"

	"github.com/go-playground/validator/v10"
)

// NewProduct describes a product added by hand.
type NewProduct struct {
	SKU         string  `json:"sku" validate:"required,max=64"`
	Name        string  `json:"name" validate:"required,max=128"`
	Category    string  `json:"category" validate:"max=64"`
	UnitPriceHT float64 `json:"unit_price_ht" validate:"finite,gte=0"`
	Quantity    int64   `json:"quantity" validate:"gte=0"`
	// VatRate nil falls back to the manager's default rate.
	VatRate *float64 `json:"vat_rate" validate:"omitempty,finite,gte=0,lte=1"`
}

// ProductUpdate is a partial update. A nil field is left untouched; a non-nil
// field is written as is, empty strings included.
type ProductUpdate struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=128"`
	Category    *string  `json:"category" validate:"omitempty,max=64"`
	UnitPriceHT *float64 `json:"unit_price_ht" validate:"omitempty,finite,gte=0"`
	Quantity    *int64   `json:"quantity" validate:"omitempty,gte=0"`
	VatRate     *float64 `json:"vat_rate" validate:"omitempty,finite,gte=0,lte=1"`
}

// ImportRecord is one product descriptor of a bulk-import payload. Pointers
// distinguish a missing field from a zero value.
type ImportRecord struct {
	SKU         *string  `json:"sku" validate:"required,min=1,max=64"`
	Name        *string  `json:"name" validate:"required,min=1,max=128"`
	Category    *string  `json:"category" validate:"required,max=64"`
	UnitPriceHT *float64 `json:"unit_price_ht" validate:"required,finite,gte=0"`
	Quantity    *int64   `json:"quantity" validate:"required,gte=0"`
	VatRate     *float64 `json:"vat_rate" validate:"required,finite,gte=0,lte=1"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误信息里使用 json 字段名，和导入文件保持一致。
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// decimal 无法表示 Inf/NaN，必须在换算前拦下。
	if err := v.RegisterValidation("finite", isFinite); err != nil {
		panic(err)
	}
	return v
}

func isFinite(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		return !math.IsInf(f.Float(), 0) && !math.IsNaN(f.Float())
	default:
		return true
	}
}

// checkStruct validates s and returns a model.ErrValidation describing every
// failed field, or nil.
func checkStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", model.ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "finite":
		return fmt.Sprintf("%s must be a finite number", fe.Field())
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", fe.Field(), fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must not be empty", fe.Field())
		}
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}
