// Package hoperr defines the structured error kinds surfaced by every
// component of hop. Each kind in spec §7 is a distinct sentinel that callers
// can match with errors.Is, wrapped with contextual fields a caller can
// extract with errors.As.
package hoperr

import "fmt"

// Kind identifies one of the error categories from the error-handling design.
type Kind string

const (
	KindInvalidVersion        Kind = "invalid_version"
	KindInvalidPatchID        Kind = "invalid_patch_id"
	KindVersionProgression    Kind = "version_progression"
	KindDirtyRepository       Kind = "dirty_repository"
	KindWrongBranch           Kind = "wrong_branch"
	KindBranchNotSynced       Kind = "branch_not_synced"
	KindNameConflict          Kind = "name_conflict"
	KindPatchAlreadyInRelease Kind = "patch_already_in_release"
	KindStageHasCandidates    Kind = "stage_has_candidates"
	KindFileExecution         Kind = "file_execution"
	KindRemoteOperation       Kind = "remote_operation"
	KindDatabaseNotConfigured Kind = "database_not_configured"
	KindProjectLocked         Kind = "project_locked"
)

// Error carries a Kind plus free-form context fields for programmatic
// inspection (tag_name, branch, expected_branch, filename, ...) alongside a
// human message.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, hoperr.KindError(hoperr.KindX)) work by comparing Kind via a sentinel
// wrapper value; see KindError below for the matching side.
func (e *Error) Is(target error) bool {
	k, ok := target.(*kindSentinel)
	if !ok {
		return false
	}
	return e.Kind == k.kind
}

type kindSentinel struct{ kind Kind }

func (k *kindSentinel) Error() string { return string(k.kind) }

// KindError returns a sentinel error value usable with errors.Is to test
// whether an error carries a particular Kind, e.g.:
//
//	if errors.Is(err, hoperr.KindError(hoperr.KindDirtyRepository)) { ... }
func KindError(k Kind) error { return &kindSentinel{kind: k} }

// New builds a new Error of the given kind with a message and optional
// context fields (passed as alternating key, value strings).
func New(kind Kind, message string, kv ...string) *Error {
	ctx := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		ctx[kv[i]] = kv[i+1]
	}
	return &Error{Kind: kind, Message: message, Context: ctx}
}

// Wrap builds a new Error of the given kind, wrapping cause.
func Wrap(kind Kind, cause error, message string, kv ...string) *Error {
	e := New(kind, message, kv...)
	e.Cause = cause
	return e
}
