// Package app defines what the application runtime expects from a command's options.
package app

import "github.com/kart-io/casegen/pkg/app/cliflag"

// CliOptions is implemented by the root options struct handed to the runtime.
// The runtime binds Flags, then calls Complete before Validate.
type CliOptions interface {
	// Flags returns the option flags grouped by section.
	Flags() cliflag.NamedFlagSets
	// Complete fills derived fields and defaults.
	Complete() error
	// Validate reports every invalid option at once.
	Validate() error
}
