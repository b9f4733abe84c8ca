package model

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// requiredErrors maps request fields to the domain error reported when they are empty.
var requiredErrors = map[string]error{
	"Name":       ErrNameRequired,
	"TodoListID": ErrTodoListIDRequired,
}

// validateStruct runs the struct's validate tags and reports the first
// failing field as a DomainError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	if fe.Tag() == "required" {
		if mapped, ok := requiredErrors[fe.StructField()]; ok {
			return mapped
		}
	}
	return DomainError{Message: fe.Field() + " is invalid"}
}
