package evo

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultNumGenerations = 100
	DefaultNumParents     = 2
	DefaultNumChildren    = 20
	DefaultLogLevel       = 0
)

// Settings is the read-only run configuration consumed by the launcher and
// the breeding strategies.
type Settings interface {
	NumGenerations() int
	NumParents() int
	NumChildren() int
	LogLevel() int
}

// WindowSettings adds the inclusive magnitude window used by ConstrainedStrategy.
type WindowSettings interface {
	Settings
	MinMagnitude() float64
	MaxMagnitude() float64
}

type optionFields struct {
	NumGenerations int `validate:"gte=1"`
	NumParents     int `validate:"gte=1"`
	NumChildren    int `validate:"gtefield=NumParents"`
	LogLevel       int `validate:"gte=0"`
}

type windowFields struct {
	MinMagnitude float64
	MaxMagnitude float64 `validate:"gtefield=MinMagnitude"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Options is an immutable run configuration. Build it with NewOptions or
// DefaultOptions; the zero value is rejected by NewLauncher.
type Options struct {
	fields optionFields
}

// NewOptions validates and returns a run configuration.
func NewOptions(numGenerations, numParents, numChildren, logLevel int) (Options, error) {
	fields := optionFields{
		NumGenerations: numGenerations,
		NumParents:     numParents,
		NumChildren:    numChildren,
		LogLevel:       logLevel,
	}
	if err := checkStruct(fields); err != nil {
		return Options{}, err
	}
	return Options{fields: fields}, nil
}

// DefaultOptions returns 100 generations, 2 parents, 20 children and silent logging.
func DefaultOptions() Options {
	return Options{fields: optionFields{
		NumGenerations: DefaultNumGenerations,
		NumParents:     DefaultNumParents,
		NumChildren:    DefaultNumChildren,
		LogLevel:       DefaultLogLevel,
	}}
}

func (o Options) NumGenerations() int { return o.fields.NumGenerations }
func (o Options) NumParents() int     { return o.fields.NumParents }
func (o Options) NumChildren() int    { return o.fields.NumChildren }
func (o Options) LogLevel() int       { return o.fields.LogLevel }

// ConstrainedOptions wraps Options with an inclusive magnitude window.
type ConstrainedOptions struct {
	Options
	window windowFields
}

// NewConstrainedOptions validates the window against an already valid Options.
func NewConstrainedOptions(options Options, minMagnitude, maxMagnitude float64) (ConstrainedOptions, error) {
	if err := ValidateSettings(options); err != nil {
		return ConstrainedOptions{}, err
	}
	window := windowFields{MinMagnitude: minMagnitude, MaxMagnitude: maxMagnitude}
	if err := checkWindow(window); err != nil {
		return ConstrainedOptions{}, err
	}
	return ConstrainedOptions{Options: options, window: window}, nil
}

func (o ConstrainedOptions) MinMagnitude() float64 { return o.window.MinMagnitude }
func (o ConstrainedOptions) MaxMagnitude() float64 { return o.window.MaxMagnitude }

// ValidateSettings checks any Settings implementation, including the magnitude
// window when s is a WindowSettings.
func ValidateSettings(s Settings) error {
	if s == nil {
		return fmt.Errorf("%w: settings are required", ErrConfiguration)
	}
	if err := checkStruct(optionFields{
		NumGenerations: s.NumGenerations(),
		NumParents:     s.NumParents(),
		NumChildren:    s.NumChildren(),
		LogLevel:       s.LogLevel(),
	}); err != nil {
		return err
	}
	if w, ok := s.(WindowSettings); ok {
		return checkWindow(windowFields{MinMagnitude: w.MinMagnitude(), MaxMagnitude: w.MaxMagnitude()})
	}
	return nil
}

func checkWindow(window windowFields) error {
	if math.IsNaN(window.MinMagnitude) || math.IsNaN(window.MaxMagnitude) {
		return fmt.Errorf("%w: magnitude window bounds must be numbers", ErrConfiguration)
	}
	return checkStruct(window)
}

func checkStruct(v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "gtefield":
		return fmt.Sprintf("%s must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
