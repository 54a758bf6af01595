// Package bridge carries calls and their failures across the process
// boundary.
//
// Handlers are registered per channel. Invoke runs one through the rate
// limiter, argument sanitiser, timeout and retry engine, then checks the
// result size; every failure comes back as an *errors.AppError and is
// serialised with errors.ToEnvelope. Mount exposes the same pipeline over
// HTTP with gin, and Client is the matching caller.
package bridge
