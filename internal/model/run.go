package model

import "errors"

// ErrConfiguration marks errors caused by invalid settings, such as a malformed
// schedule expression or an unknown time zone. They are fatal at start-up.
var ErrConfiguration = errors.New("configuration error")

// RunStatus is the outcome of one report run.
type RunStatus string

const (
	RunSucceeded RunStatus = "SUCCESS"
	RunFailed    RunStatus = "FAILED"
)
