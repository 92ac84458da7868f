/*
Package storeerr defines the store's semantic error taxonomy as typed
errors rather than stringly-typed failures, so callers can
errors.As/errors.Is them instead of matching on message text.

ConstraintViolation and DuplicateBlockProcessing are fatal for the
owning deployment (Kind.Fatal). Where the entity store and the write
path raise a ConstraintViolation they abort the current commit without
partial effect and log it at Error level (see pkg/log) before returning
it.
*/
package storeerr
