package reload

import (
	"errors"
	"fmt"
)

// Reload errors.
var (
	// ErrBaseLoad matches every error of KindBaseLoad.
	ErrBaseLoad = errors.New("rule database could not be loaded")

	// ErrSettings matches every error of KindSettings.
	ErrSettings = errors.New("settings store failure")
)

// Kind classifies a fatal reload failure.
type Kind int

const (
	// KindBaseLoad covers unreadable or malformed catalog, rule and color
	// files, and scheme definitions that cannot be mapped.
	KindBaseLoad Kind = iota
	// KindSettings covers failures of the settings or profile store.
	KindSettings
)

func (k Kind) String() string {
	switch k {
	case KindBaseLoad:
		return "base load"
	case KindSettings:
		return "settings"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Step names the reload step that failed.
type Step int

const (
	StepSettings Step = iota
	StepCatalog
	StepUserColors
	StepUserRules
	StepProfile
	StepScheme
	StepCompile
	StepBundle
)

func (s Step) String() string {
	switch s {
	case StepSettings:
		return "settings"
	case StepCatalog:
		return "catalog"
	case StepUserColors:
		return "user colors"
	case StepUserRules:
		return "user rules"
	case StepProfile:
		return "profile"
	case StepScheme:
		return "scheme"
	case StepCompile:
		return "compile"
	case StepBundle:
		return "bundle"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Error is a fatal reload failure.
type Error struct {
	Kind Kind
	Step Step
	Path string // file or type the step was working on, if any
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("reload %s: %s: %v", e.Step, e.Path, e.Err)
	}
	return fmt.Sprintf("reload %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrBaseLoad or ErrSettings by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrBaseLoad:
		return e.Kind == KindBaseLoad
	case ErrSettings:
		return e.Kind == KindSettings
	}
	return false
}

// KindOf returns the kind of a reload error. Errors that are not reload
// errors are reported as KindBaseLoad.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindBaseLoad
}

func baseLoad(step Step, path string, err error) *Error {
	return &Error{Kind: KindBaseLoad, Step: step, Path: path, Err: err}
}
