// =============================================================================
// Ticket Sheets - Pipeline Error Taxonomy
// =============================================================================
//
// Three failure classes are distinguished so the caller can render them
// differently:
//
//   - ErrEmptyTable: the parsed export holds no booking rows.
//   - ConfigError: the configuration references an unknown conversion,
//     extraction, formatter or total method, or carries an unusable value.
//     A deployment mistake, not bad input data.
//   - ContractError: a pipeline stage was invoked before its prerequisite
//     derivation ran (e.g. aggregation without ticket columns). A
//     programming error in the caller.
//   - DataError: a required field of the input could not be interpreted at
//     all (an unparseable start date). Unlike row-level defects, which
//     degrade to documented fallback values, these abort the run.
//
// =============================================================================

package bookings

import (
	"errors"
	"fmt"
)

// ErrEmptyTable reports an input table with no booking rows.
var ErrEmptyTable = errors.New("no booking rows found")

// ConfigError reports a configuration integrity problem.
type ConfigError struct {
	Kind string // "conversion", "extraction", "formatter", "total method", ...
	Name string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s name %q", e.Kind, e.Name)
}

// ContractError reports a precondition violation between pipeline stages.
type ContractError struct {
	Msg string
}

func (e *ContractError) Error() string { return e.Msg }

// DataError reports an input cell the run cannot proceed without.
type DataError struct {
	Column string
	Value  string
	Err    error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("cannot parse %s value %q: %v", e.Column, e.Value, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }
