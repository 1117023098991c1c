package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "covcheck/internal/errors"
	"covcheck/internal/exporter"
)

// Validator validates request structs with the covcheck custom tags:
//
//	workbook    file name with an .xlsx/.xlsm extension, not an Excel lock file
//	filename    bare file name without path components
//	outputname  a file name written by a coverage run
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the custom tags registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("workbook", isWorkbook)
	_ = v.RegisterValidation("filename", isValidFilename)
	_ = v.RegisterValidation("outputname", isOutputName)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates s and returns an *apierrors.APIError listing every failed field
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	details := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(details)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "workbook":
		return fmt.Sprintf("%s must be an .xlsx or .xlsm workbook", field)
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	case "outputname":
		return fmt.Sprintf("%s is not a coverage output file", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isWorkbook(fl validator.FieldLevel) bool {
	return CheckWorkbookName(fl.Field().String()) == nil
}

func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" || len(filename) > 255 {
		return false
	}
	// Prevent directory traversal
	return !strings.Contains(filename, "..") &&
		!strings.ContainsAny(filename, `/\`)
}

func isOutputName(fl validator.FieldLevel) bool {
	return exporter.IsOutputName(fl.Field().String())
}
