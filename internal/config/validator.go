package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("noplaceholder", func(fl validator.FieldLevel) bool {
		return !envVarPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks field rules and the cross-section requirements.
func Validate(cfg *Config) error {
	var problems []string

	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if cfg.Workspace.LocalDir == "" {
		if strings.TrimSpace(cfg.Workspace.Host) == "" {
			problems = append(problems, "workspace.host is required (set DATABRICKS_HOST or workspace.local_dir)")
		}
		if strings.TrimSpace(cfg.Workspace.Token) == "" {
			problems = append(problems, "workspace.token is required (set DATABRICKS_TOKEN or workspace.local_dir)")
		}
	}
	if cfg.API.Enabled {
		if cfg.API.Listen == "" {
			problems = append(problems, "api.listen is required when api.enabled is true")
		}
		if cfg.API.Auth.APIKey == "" && len(cfg.API.Auth.Tokens) == 0 {
			problems = append(problems, "api.auth.api_key or api.auth.tokens is required when api.enabled is true")
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// describe renders a field error with the config key path, e.g.
// "bundle.target_env must be one of [dev staging prod]".
func describe(fe validator.FieldError) string {
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", key, fe.Param())
	case "noplaceholder":
		return fmt.Sprintf("%s contains an unresolved ${VAR} placeholder", key)
	case "min":
		return fmt.Sprintf("%s needs at least %s entry", key, fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", key, map[string]string{"gt": ">", "gte": ">="}[fe.Tag()], fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}
