package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/abhisek/brainbrew/internal/tutor"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
	validateErr  error
)

func validatorInstance() (*validator.Validate, error) {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validateErr = RegisterValidations(v)
		validate = v
	})
	return validate, validateErr
}

// RegisterValidations adds the brainbrew tags to v:
//
//	difficulty: an integer level in 1..4 or a level name.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("difficulty", validDifficulty)
}

func validDifficulty(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return tutor.Difficulty(f.Int()).Valid()
	case reflect.String:
		_, err := tutor.ParseDifficulty(f.String())
		return err == nil
	}
	return false
}

// Validate checks field constraints. Provider credentials are checked
// separately by RequireLLM since not every command talks to a model.
func (c Config) Validate() error {
	v, err := validatorInstance()
	if err != nil {
		return fmt.Errorf("config validator: %w", err)
	}
	if err := v.Struct(c); err != nil {
		return describe(err)
	}
	return nil
}

// RequireLLM checks that the selected provider has credentials.
func (c Config) RequireLLM() error {
	return c.LLM.Validate()
}

// ValidateServer additionally requires the settings only `serve` needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.JWTSecret == "" {
		return errors.New("invalid configuration: server.jwt_secret is required to serve (set BRAINBREW_JWT_SECRET)")
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the root type name.
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		msg := field + " fails " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
