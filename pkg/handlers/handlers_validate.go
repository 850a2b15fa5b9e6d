package handlers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/dpm2/maintenance-api/pkg/models"
)

var (
	validatorMu sync.Mutex
	maxUrgency  = 3
)

// RegisterValidators installs the custom binding rules on gin's validator:
// "urgency" accepts 1..maxUrg, "role" accepts the known account roles and
// "status" accepts the request statuses a caller may set.
func RegisterValidators(maxUrg int) error {
	validatorMu.Lock()
	defer validatorMu.Unlock()
	if maxUrg >= 1 {
		maxUrgency = maxUrg
	}

	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("urgency", validateUrgency); err != nil {
		return err
	}
	if err := v.RegisterValidation("role", validateRole); err != nil {
		return err
	}
	return v.RegisterValidation("status", validateStatus)
}

func validateUrgency(fl validator.FieldLevel) bool {
	validatorMu.Lock()
	top := maxUrgency
	validatorMu.Unlock()
	u := fl.Field().Int()
	return u >= 1 && u <= int64(top)
}

func validateRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

func validateStatus(fl validator.FieldLevel) bool {
	switch models.RequestStatus(fl.Field().String()) {
	case models.StatusInProgress, models.StatusCompleted, models.StatusCancelled:
		return true
	}
	return false
}
