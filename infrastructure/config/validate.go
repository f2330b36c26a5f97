package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ErrConfiguration is returned for invalid settings; it is fatal at startup
var ErrConfiguration = errors.New("invalid configuration")

// ConfigurationError lists every problem found in a configuration
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrConfiguration, strings.Join(e.Problems, "; "))
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// Errorf builds a single-problem ConfigurationError
func Errorf(format string, args ...any) error {
	return &ConfigurationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

type validatorSvc struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *validatorSvc
)

func validatorInstance() *validatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// report yaml keys rather than Go field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		vSvc = &validatorSvc{validate: v, translator: trans}
	})
	return vSvc
}

// Validate checks the configuration needed to watch a source
func Validate(cfg *Config) error {
	if cfg == nil {
		return Errorf("configuration is missing")
	}

	svc := validatorInstance()
	var problems []string

	if err := svc.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ConfigurationError{Problems: []string{err.Error()}}
		}
		for _, fe := range verrs {
			problems = append(problems, fieldPath(fe.Namespace())+": "+fe.Translate(svc.translator))
		}
	}

	if cfg.Notify.UseAMQP && strings.TrimSpace(cfg.Notify.AMQP.URL) == "" {
		problems = append(problems, "notify.amqp.url: required when use_amqp is enabled")
	}
	if cfg.Notify.UseAMQP && cfg.Notify.AMQP.Queue == "" && cfg.Notify.AMQP.Exchange == "" {
		problems = append(problems, "notify.amqp: queue or exchange is required when use_amqp is enabled")
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
