package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"field-dispatch/internal/entities"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,19}$`)

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("notblank", isNotBlank); err != nil {
		return err
	}
	if err := v.RegisterValidation("phone", isPhoneNumber); err != nil {
		return err
	}
	if err := v.RegisterValidation("task_status", isTaskStatusList); err != nil {
		return err
	}
	return nil
}

func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func isPhoneNumber(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

// isTaskStatusList accepts one status or a comma separated list of them.
func isTaskStatusList(fl validator.FieldLevel) bool {
	for _, part := range strings.Split(fl.Field().String(), ",") {
		if _, err := entities.ParseTaskStatus(part); err != nil {
			return false
		}
	}
	return true
}
