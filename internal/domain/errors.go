package domain

import "errors"

var (
	ErrInvalidRule    = errors.New("invalid sla rule")
	ErrNoRecords      = errors.New("no shipment records")
	ErrMissingColumns = errors.New("required columns missing")
	ErrRunNotFound    = errors.New("analysis run not found")
)
