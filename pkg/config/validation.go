package config

import (
	"reflect"

	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// Validator is an optional interface that configuration structs may
// implement for custom validation logic. If the struct passed to
// [Loader.Load] implements Validator, its Validate method is called
// after tag-based validation ([required] tag) succeeds.
//
// Errors that are already [*sserr.Error] are returned as-is; other errors
// are wrapped with [sserr.CodeConfiguration].
type Validator interface {
	Validate() error
}

// validate performs tag-based required validation and then invokes the
// Validator interface if the config struct implements it.
func validate(cfg any, rv reflect.Value) error {
	if err := validateRequired(rv, ""); err != nil {
		return err
	}

	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			if _, isSSErr := sserr.AsError(err); isSSErr {
				return err
			}
			return sserr.Wrap(err, sserr.CodeConfiguration,
				"config: custom validation failed")
		}
	}

	return nil
}

// validateRequired recursively checks that all fields tagged with
// `required:"true"` hold non-zero values. Error messages name the setting
// by its json key when it has one, so they match what the user wrote in
// the configuration file.
func validateRequired(rv reflect.Value, path string) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		name := jsonName(sf)
		if name == "" {
			name = sf.Name
		}
		fieldPath := name
		if path != "" {
			fieldPath = path + "." + name
		}

		if field.Kind() == reflect.Struct && sf.Type != durationType {
			if err := validateRequired(field, fieldPath); err != nil {
				return err
			}
			continue
		}

		if sf.Tag.Get("required") != "true" {
			continue
		}

		if field.IsZero() {
			return sserr.Newf(sserr.CodeConfigurationMissing,
				"config: required setting %q is empty", fieldPath)
		}
	}

	return nil
}
