package providers

import (
	"errors"
	"fmt"
)

// FetchError wraps a failure to fetch PR context. Fatal for the
// invocation: no partial review can be produced without context.
type FetchError struct {
	Provider string
	URL      string
	Err      error
}

func (e *FetchError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s: fetching %s: %v", e.Provider, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: fetching pull request context: %v", e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PublishError wraps a failure to publish a comment. Non-fatal per inline
// comment; fatal only when the primary artifact (the summary comment)
// cannot be posted.
type PublishError struct {
	Provider string
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s: publishing comment: %v", e.Provider, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// WriteError wraps a failure to commit a file through the provider.
// Conflict is set when the file changed between read and write; callers
// may re-read and retry once.
type WriteError struct {
	Provider string
	Path     string
	Conflict bool
	Err      error
}

func (e *WriteError) Error() string {
	if e.Conflict {
		return fmt.Sprintf("%s: writing %s: content changed since read: %v", e.Provider, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: writing %s: %v", e.Provider, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsWriteConflict reports whether err is a conflicting file write.
func IsWriteConflict(err error) bool {
	var we *WriteError
	return errors.As(err, &we) && we.Conflict
}
