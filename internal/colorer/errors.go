package colorer

import "errors"

// Colorer errors.
var (
	// ErrDisabled is returned by commands that need an active bundle while
	// the add-on is disabled.
	ErrDisabled = errors.New("colorer is disabled")

	// ErrNoSession is returned when an editor event cannot be given a
	// highlighting session.
	ErrNoSession = errors.New("no highlighting session for editor")

	// ErrNoViewer is returned by ViewFile when no viewer is configured.
	ErrNoViewer = errors.New("no viewer configured")

	// ErrBadHotkey is returned for a hotkey that is not a single letter or
	// digit.
	ErrBadHotkey = errors.New("hotkey must be a single letter or digit")

	// ErrUnknownScheme is returned when picking a scheme the database does
	// not define.
	ErrUnknownScheme = errors.New("unknown color scheme")
)
