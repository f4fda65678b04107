package reputation

import "errors"

// Sentinel kinds for grant and wipe denials.
var (
	ErrSelfGrant        = errors.New("self grant")
	ErrTargetDailyLimit = errors.New("target already endorsed today")
	ErrDailyLimit       = errors.New("daily grant allowance spent")
	ErrWipeUsed         = errors.New("daily wipe allowance spent")
)
