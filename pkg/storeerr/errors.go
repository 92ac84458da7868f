package storeerr

import "fmt"

// Kind enumerates the store's semantic error taxonomy.
type Kind int

const (
	Unknown Kind = iota
	ConflictingID
	UnknownField
	UnknownTable
	MalformedDirective
	QueryExecutionError
	InvalidIdentifier
	DuplicateBlockProcessing
	ConstraintViolation
	DeploymentNotFound
	UnknownShard
	FulltextSearchNonDeterministic
)

func (k Kind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case ConflictingID:
		return "ConflictingID"
	case UnknownField:
		return "UnknownField"
	case UnknownTable:
		return "UnknownTable"
	case MalformedDirective:
		return "MalformedDirective"
	case QueryExecutionError:
		return "QueryExecutionError"
	case InvalidIdentifier:
		return "InvalidIdentifier"
	case DuplicateBlockProcessing:
		return "DuplicateBlockProcessing"
	case ConstraintViolation:
		return "ConstraintViolation"
	case DeploymentNotFound:
		return "DeploymentNotFound"
	case UnknownShard:
		return "UnknownShard"
	case FulltextSearchNonDeterministic:
		return "FulltextSearchNonDeterministic"
	default:
		return "Unknown"
	}
}

// Fatal reports whether errors of this kind must be treated as fatal
// for the owning deployment rather than surfaced and retried.
func (k Kind) Fatal() bool {
	return k == DuplicateBlockProcessing || k == ConstraintViolation
}

// Error is a semantic store error: a Kind, a human-readable message,
// and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func NewUnknown(cause error) *Error {
	return newErr(Unknown, cause, "backing store failure")
}

func NewConflictingID(entityType, id, otherType string) *Error {
	return newErr(ConflictingID, nil,
		"entity id %q of type %q collides with an entity of type %q sharing an interface",
		id, entityType, otherType)
}

func NewUnknownField(name string) *Error {
	return newErr(UnknownField, nil, "unknown field %q", name)
}

func NewUnknownTable(name string) *Error {
	return newErr(UnknownTable, nil, "unknown table %q", name)
}

func NewMalformedDirective(text string) *Error {
	return newErr(MalformedDirective, nil, "malformed directive: %s", text)
}

func NewQueryExecutionError(reason string) *Error {
	return newErr(QueryExecutionError, nil, "%s", reason)
}

func NewInvalidIdentifier(text string) *Error {
	return newErr(InvalidIdentifier, nil, "invalid identifier: %q", text)
}

func NewDuplicateBlockProcessing(deployment string, blockNumber int32) *Error {
	return newErr(DuplicateBlockProcessing, nil,
		"deployment %q: block %d is being processed by two writers", deployment, blockNumber)
}

func NewConstraintViolation(msg string) *Error {
	return newErr(ConstraintViolation, nil, "%s", msg)
}

func NewDeploymentNotFound(deployment string) *Error {
	return newErr(DeploymentNotFound, nil, "deployment %q not found", deployment)
}

func NewUnknownShard(shard string) *Error {
	return newErr(UnknownShard, nil, "unknown shard %q", shard)
}

func NewFulltextSearchNonDeterministic() *Error {
	return newErr(FulltextSearchNonDeterministic, nil,
		"fulltext search is not permitted in deterministic execution")
}
