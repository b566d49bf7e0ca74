package distroinfo

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrSourceRequired is returned when no Source (or SourceConfig
	// selecting one) was given.
	ErrSourceRequired = errors.New("no info source was selected")

	// ErrInvalidInfoFormat matches, through errors.Is, every error caused by
	// malformed info content.
	ErrInvalidInfoFormat = errors.New("invalid info format")
)

// formatError is embedded by the info format errors so they all match
// ErrInvalidInfoFormat.
type formatError struct{}

func (formatError) Is(target error) bool { return target == ErrInvalidInfoFormat }

// InvalidInfoFormatError reports info content with the wrong shape.
type InvalidInfoFormatError struct {
	formatError
	Msg string
}

func (e *InvalidInfoFormatError) Error() string {
	if e.Msg == "" {
		return "Invalid info format."
	}
	return "Invalid info format: " + e.Msg
}

func invalidFormat(format string, args ...interface{}) error {
	return &InvalidInfoFormatError{Msg: fmt.Sprintf(format, args...)}
}

// MissingRequiredSectionError reports a missing top level section.
type MissingRequiredSectionError struct {
	formatError
	Section string
}

func (e *MissingRequiredSectionError) Error() string {
	return "Info is missing required section: " + e.Section
}

// MissingRequiredItemError reports a missing field of a release, repo or
// package.
type MissingRequiredItemError struct {
	formatError
	Item string
}

func (e *MissingRequiredItemError) Error() string {
	return "Required item missing: " + e.Item
}

// UndefinedPackageConfigError reports a `conf` reference with no matching
// entry in package-configs.
type UndefinedPackageConfigError struct {
	formatError
	Conf string
}

func (e *UndefinedPackageConfigError) Error() string {
	return "Package config isn't defined: " + e.Conf
}

// SubstitutionFailedError reports a string attribute whose placeholders
// could not be interpolated.
type SubstitutionFailedError struct {
	formatError
	Text   string
	Reason string
}

func (e *SubstitutionFailedError) Error() string {
	msg := "Substitution failed for string: " + e.Text
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// DuplicatedProjectError reports two list entries with the same project.
type DuplicatedProjectError struct {
	formatError
	Project string
}

func (e *DuplicatedProjectError) Error() string {
	return "Duplicated project: " + e.Project
}

// CircularInfoIncludeError reports an info file importing itself along the
// current include path.
type CircularInfoIncludeError struct {
	formatError
	Info string
	// Path is the include path leading back to Info, outermost first.
	Path []string
}

func (e *CircularInfoIncludeError) Error() string {
	if len(e.Path) == 0 {
		return "Circular info include: " + e.Info
	}
	return fmt.Sprintf("Circular info include: %s (via %s)", e.Info, strings.Join(e.Path, " -> "))
}

// InvalidRemoteInfoRefError reports a cross-source reference to a remote
// that no fetched remote-info section defines.
type InvalidRemoteInfoRefError struct {
	Remote string
}

func (e *InvalidRemoteInfoRefError) Error() string {
	return "Remote info referenced but not defined in 'remote-info' section: " + e.Remote
}

// InvalidQueryError reports a query that cannot be answered from the info.
type InvalidQueryError struct {
	Why string
}

func (e *InvalidQueryError) Error() string {
	return "Invalid query: " + e.Why
}

// InvalidPackageFilterError reports a package filter that cannot be
// applied.
type InvalidPackageFilterError struct {
	Why string
}

func (e *InvalidPackageFilterError) Error() string {
	return "Invalid package filter: " + e.Why
}

// NotFoundError reports an info file missing from a source.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return "Info file not found: " + e.Path
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// RemoteFetchError reports a non-success HTTP response.
type RemoteFetchError struct {
	Code   int
	Reason string
	URL    string
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("Failed to fetch remote file: %d %s %s", e.Code, e.Reason, e.URL)
}

// RepoError reports an unusable repository URL or clone.
type RepoError struct {
	What string
}

func (e *RepoError) Error() string {
	return "Repository error: " + e.What
}

// NotADirectoryError reports a path expected to be a directory.
type NotADirectoryError struct {
	Path string
}

func (e *NotADirectoryError) Error() string {
	return "Not a directory: " + e.Path
}

// CommandFailedError reports a failed repository operation (clone, fetch,
// checkout or reset).
type CommandFailedError struct {
	Op   string
	Path string
	Err  error
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("Repository command failed: git %s %s: %s", e.Op, e.Path, e.Err)
}

func (e *CommandFailedError) Unwrap() error { return e.Err }
