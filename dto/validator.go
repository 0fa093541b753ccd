package dto

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var minecraftUsernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("minecraft_username", validateMinecraftUsername)
}

func GetValidator() *validator.Validate {
	return validate
}

// validateMinecraftUsername enforces the Mojang account name rules: 3-16
// characters, letters, digits and underscore only.
func validateMinecraftUsername(fl validator.FieldLevel) bool {
	return minecraftUsernameRegex.MatchString(fl.Field().String())
}

// IsValidMinecraftUsername is the same check for callers outside struct
// validation.
func IsValidMinecraftUsername(name string) bool {
	return minecraftUsernameRegex.MatchString(name)
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors"`
}

func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			var message string

			switch fieldError.Tag() {
			case "required":
				message = fieldError.Field() + " is required"
			case "min":
				message = fieldError.Field() + " must be at least " + fieldError.Param() + " characters"
			case "max":
				message = fieldError.Field() + " must be at most " + fieldError.Param() + " characters"
			case "minecraft_username":
				message = "Minecraft username must be 3-16 characters of letters, numbers and underscores"
			case "hostname|ip":
				message = fieldError.Field() + " must be a valid hostname or IP address"
			case "url":
				message = fieldError.Field() + " must be a valid URL"
			case "oneof":
				message = fieldError.Field() + " must be one of: " + fieldError.Param()
			default:
				message = fieldError.Field() + " is invalid"
			}

			errors = append(errors, ValidationError{
				Field:   fieldError.Field(),
				Message: message,
			})
		}
	}

	return errors
}

type Validator interface {
	Validate() error
}

func CreateValidationErrorResponse(err error) ValidationErrorResponse {
	return ValidationErrorResponse{
		Code:    400,
		Message: "Validation failed",
		Errors:  FormatValidationErrors(err),
	}
}
