// Package costmodel holds the weights driving the expression inliner. The
// weights are policy, not measurements: they only need to order expressions
// sensibly (a literal is cheaper than a property read, a property read is
// cheaper than an allocation). A profile can be overridden per project with a
// slintc-cost.yaml file or pointed at via the SLINTC_COST_PROFILE environment
// variable.
package costmodel

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	env "github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// NeverInline is the cost of an expression that must stay behind its own
// property, whatever the thresholds are.
const NeverInline = int64(math.MaxInt64)

// Profile is one set of inliner weights
type Profile struct {
	// PropertyAccess is the cost of reading a property through the
	// dependency-tracking machinery
	PropertyAccess int64 `yaml:"property-access"`

	// Alloc is the cost of a heap allocation (string, struct, gradient)
	Alloc int64 `yaml:"alloc"`

	// ArrayIndex is the cost of a checked model read
	ArrayIndex int64 `yaml:"array-index"`

	// ConditionMargin is added on top of a condition's worst branch
	ConditionMargin int64 `yaml:"condition-margin"`

	// ArithmeticOp is the cost of one arithmetic or comparison operation
	ArithmeticOp int64 `yaml:"arithmetic-op"`
}

// Default returns the built-in profile
func Default() Profile {
	return Profile{
		PropertyAccess:  1000,
		Alloc:           700,
		ArrayIndex:      500,
		ConditionMargin: 10,
		ArithmeticOp:    1,
	}
}

// InlineThreshold is the cost below which a multi-use binding is inlined into
// its readers. It sits just under the cost of two allocations, so a binding
// worth less than the bookkeeping of keeping it alive is always folded.
func (p Profile) InlineThreshold() int64 {
	return 2*p.Alloc - 10
}

// SingleUseThreshold is the more generous cost limit applied when the binding
// has exactly one reader, since inlining then removes the binding entirely.
func (p Profile) SingleUseThreshold() int64 {
	return 10 * p.Alloc
}

// profileFileName is the per-project override looked up next to the root
// document.
const profileFileName = "slintc-cost.yaml"

// LoadOptional returns the profile for a project rooted at dir: the default
// weights, overridden field by field from dir/slintc-cost.yaml when that file
// exists. A missing file is not an error; a malformed one is.
func LoadOptional(dir string) (Profile, error) {
	p := Default()
	data, err := os.ReadFile(filepath.Join(dir, profileFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("invalid cost profile %s: %w", profileFileName, err)
	}
	return p, nil
}

// FromEnvironment returns the profile named by SLINTC_COST_PROFILE (a path to
// a yaml profile), or the default profile when the variable is unset.
func FromEnvironment() (Profile, error) {
	p := Default()
	path := env.Str("SLINTC_COST_PROFILE", "")
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("invalid cost profile %s: %w", path, err)
	}
	return p, nil
}
