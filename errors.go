package autowebsites

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("autowebsites: no store configured")
	ErrStoreClosed     = errors.New("autowebsites: store closed")
	ErrMigrationFailed = errors.New("autowebsites: migration failed")

	// Entity errors.
	ErrRunNotFound      = errors.New("autowebsites: run not found")
	ErrRunExists        = errors.New("autowebsites: run already exists")
	ErrInstanceNotFound = errors.New("autowebsites: instance not found")

	// Admission errors. The scheduler maps these to "skipped" outcomes;
	// they never mark a run failed.
	ErrAlreadyRunning  = errors.New("autowebsites: cycle already running in this process")
	ErrOutsideRunHours = errors.New("autowebsites: outside configured run hours")
	ErrQuotaExhausted  = errors.New("autowebsites: daily email quota exhausted")
	ErrLockUnavailable = errors.New("autowebsites: cycle lock held by another instance")

	// State errors.
	ErrInvalidState     = errors.New("autowebsites: invalid state transition")
	ErrSchedulerStopped = errors.New("autowebsites: scheduler stopped")
	ErrNotBuilt         = errors.New("autowebsites: orchestrator not built, call engine.Build first")
)
