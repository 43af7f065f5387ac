package chatparse

import "errors"

// ErrUnparseableTimestamp indicates a chat line's date/time prefix matched
// the header pattern but its date or time component could not be parsed.
var ErrUnparseableTimestamp = errors.New("unparseable chat timestamp")
