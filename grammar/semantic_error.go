package grammar

import "errors"

var (
	semErrNoRule        = errors.New("a grammar needs at least one rule")
	semErrUndefinedRule = errors.New("undefined rule")
	semErrUndefinedRoot = errors.New("undefined root rule")
)
