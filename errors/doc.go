// Package errors provides structured errors for the pipeline and its
// collaborators. Every error carries a code, a category with default retry
// semantics, and optional task/pipeline context so the orchestrator can
// decide whether a failed stage aborts the run or degrades it.
//
// The taxonomy follows the service contract: MISSING_VARIABLE and
// UNKNOWN_TASK are permanent caller mistakes, TASK_EXECUTION and provider
// codes are transient and substitutable, and SCHEMA_VALIDATION is recovered
// locally with the empty-object sentinel rather than propagated.
package errors
