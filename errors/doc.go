// Package errors defines the canonical failure vocabulary of failsafe.
//
// Every failure is an *AppError classified on three axes: Category (coarse
// domain, drives default retry policy and UI iconography), ErrorCode (fine
// identity, drives user copy and default recovery actions) and Severity
// (drives whether the failure is surfaced persistently or transiently).
//
// Errors are built by a Factory, which binds the configured retry budget,
// or produced by Factory.Classify from arbitrary Go errors. The Manager adds
// a bounded history and publishes an ErrorEvent for each handled failure.
//
// AppErrors cross the process boundary only as an Envelope: user-facing text
// plus recovery action descriptors, never causes or stack traces.
package errors
