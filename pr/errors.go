package pr

import "errors"

// Provider resolution errors.
var (
	// ErrNoProvider means no provider was configured or found in context.
	ErrNoProvider = errors.New("no PR provider configured")

	// ErrUnknownProvider means the remote URL matches no known platform.
	ErrUnknownProvider = errors.New("unknown git provider")
)

// Pull-request API errors, normalized across platforms.
var (
	// ErrExists means the source branch already has an open pull request.
	ErrExists = errors.New("pull request already exists for this branch")

	// ErrNotFound means no pull request has that number.
	ErrNotFound = errors.New("pull request not found")

	// ErrClosed means the pull request is closed and cannot be merged.
	ErrClosed = errors.New("pull request is closed")

	// ErrMerged means the pull request was already merged.
	ErrMerged = errors.New("pull request is already merged")

	// ErrBranchNotPushed means the source branch is not on the remote.
	ErrBranchNotPushed = errors.New("branch not pushed to remote")

	// ErrNoChanges means the branches have no commits between them.
	ErrNoChanges = errors.New("no changes between branches")

	// ErrMergeConflict means the merge cannot be completed cleanly.
	ErrMergeConflict = errors.New("merge conflict")
)
