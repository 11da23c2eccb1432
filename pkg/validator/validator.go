package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// FieldError describe un campo que no pasó la validación.
type FieldError struct {
	FailedField string `json:"field"`
	Tag         string `json:"tag"`
	Value       string `json:"value,omitempty"`
}

var validate = validator.New()

func init() {
	_ = validate.RegisterValidation("item_category", func(fl validator.FieldLevel) bool {
		return entity.IsValidCategory(fl.Field().String())
	})
	_ = validate.RegisterValidation("movement_type", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		return entity.IsValidMovementType(t) && t != entity.MovementTypeTransfer
	})
	// decimal como string: vacío se permite (usar required para exigirlo)
	_ = validate.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		if s == "" {
			return true
		}
		_, err := decimal.NewFromString(s)
		return err == nil
	})
}

// ValidateStruct valida los tags `validate` de data y devuelve los campos con error.
func ValidateStruct(data interface{}) []*FieldError {
	var out []*FieldError
	err := validate.Struct(data)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []*FieldError{{FailedField: "", Tag: err.Error()}}
	}
	for _, e := range verrs {
		out = append(out, &FieldError{FailedField: e.StructNamespace(), Tag: e.Tag(), Value: e.Param()})
	}
	return out
}

// Message resume los errores de validación en una sola línea.
func Message(errs []*FieldError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Value != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", e.FailedField, e.Tag, e.Value))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", e.FailedField, e.Tag))
		}
	}
	return strings.Join(parts, "; ")
}
