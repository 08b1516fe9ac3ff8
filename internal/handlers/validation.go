package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// validationErrorMessage returns a user-friendly validation error message.
func validationErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, ve := range verrs {
			switch ve.Field() {
			case "BayerOrder":
				switch ve.Tag() {
				case "min", "max":
					return "bayer_order must be between 1 and 64"
				}
			case "Palette":
				if ve.Tag() == "max" {
					return "palette is too long"
				}
			}
		}
	}
	return "Invalid request"
}
