package errors

import (
	"fmt"
)

// MissingFieldError represents a missing required field. It is the
// configuration error of a watch session, and is always fatal.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FriendlyMessage implements Friendly.
func (err MissingFieldError) FriendlyMessage() string {
	return fmt.Sprintf("The %q option is required. Set it in the config "+
		"file or pass it as a flag.", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// ResolutionError is returned when the remote target folder can't be
// determined from the directory listing.
type ResolutionError struct {
	Reason string
}

func (err ResolutionError) Error() string {
	return fmt.Sprintf("resolve remote folder: %s", err.Reason)
}

// FriendlyMessage implements Friendly.
func (err ResolutionError) FriendlyMessage() string {
	return fmt.Sprintf("Could not find a remote folder (%s). "+
		"Check your credentials and host.", err.Reason)
}

// StatError is returned when the local metadata of a path can't be read for
// a reason other than the path not existing.
type StatError struct {
	Path string
	Err  error
}

func (err StatError) Error() string {
	return fmt.Sprintf("stat %q: %s", err.Path, err.Err)
}

func (err StatError) Unwrap() error {
	return err.Err
}

// TransportError is returned when a request never got a response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (err TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", err.Method, err.URL, err.Err)
}

func (err TransportError) Unwrap() error {
	return err.Err
}

// RemoteRejection is returned when the server answered with a status code
// that doesn't count as a success for the request.
type RemoteRejection struct {
	Method     string
	URL        string
	StatusCode int
}

func (err RemoteRejection) Error() string {
	return fmt.Sprintf("%s %s: server returned %d", err.Method, err.URL, err.StatusCode)
}
