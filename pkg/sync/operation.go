package sync

// An Operation is a single remote change computed from the current state of
// a local path. Operations are never queued or persisted: they're planned,
// executed and discarded.
type Operation interface {
	// Destination is the URL the operation acts on.
	Destination() string

	// Kind is a short name for the operation, used in logs and metrics.
	Kind() string
}

// Upload overwrites the remote file with the contents of the local file.
type Upload struct {
	LocalPath  string
	RemotePath string
}

// CreateCollection creates a remote directory.
type CreateCollection struct {
	LocalPath  string
	RemotePath string
}

// Delete removes a remote file or directory.
type Delete struct {
	RemotePath string
}

func (op Upload) Destination() string           { return op.RemotePath }
func (op CreateCollection) Destination() string { return op.RemotePath }
func (op Delete) Destination() string           { return op.RemotePath }

func (Upload) Kind() string           { return "upload" }
func (CreateCollection) Kind() string { return "mkcol" }
func (Delete) Kind() string           { return "delete" }
