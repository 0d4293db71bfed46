package datalog

import "errors"

// ErrInvalidRule is wrapped into the multierror collected by ValidateRules
// when one or more rules violate the range-restriction invariant.
var ErrInvalidRule = errors.New("datalog: invalid rule: range restriction violated")

// ErrTooManyFacts and ErrTooManyIterations are the fixpoint driver's
// resource-cap failures.
var (
	ErrTooManyFacts      = errors.New("datalog: too many facts")
	ErrTooManyIterations = errors.New("datalog: too many iterations")
	ErrTimeout           = errors.New("datalog: timeout")
)
