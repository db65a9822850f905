// Package options holds the contract shared by every option group and the
// helpers used to compose them under dotted flag prefixes.
package options

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every option group.
type IOptions interface {
	// Validate returns every problem found, or nil.
	Validate() []error

	// AddFlags binds the group's fields under the given prefixes.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Join turns prefixes into a flag name stem: Join("cache", "redis") is
// "cache.redis.", Join() is "".
func Join(prefixes ...string) string {
	if stem := strings.Join(prefixes, "."); stem != "" {
		return stem + "."
	}
	return ""
}

// PrefixErrors qualifies errors from a group registered under a caller
// chosen prefix, so "provider is required" reads "chat.provider is required".
func PrefixErrors(prefix string, errs []error) []error {
	if len(errs) == 0 {
		return nil
	}
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		out = append(out, fmt.Errorf("%s%w", Join(prefix), err))
	}
	return out
}
