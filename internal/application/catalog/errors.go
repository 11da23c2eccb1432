package catalog

import (
	"fmt"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/pkg/validator"
)

// validate aplica los tags del DTO y devuelve ErrInvalidInput con el detalle.
func validate(in interface{}) error {
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, validator.Message(errs))
	}
	return nil
}
