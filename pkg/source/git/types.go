package git

import "time"

// CommitInfo describes a commit in the unit repository.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// Short returns the abbreviated SHA.
func (c *CommitInfo) Short() string {
	return ShortSHA(c.SHA)
}

// PullResult is the outcome of a pull.
type PullResult struct {
	FromSHA string
	ToSHA   string

	// ChangedFiles are paths relative to the repository root.
	ChangedFiles []string
}

// HadChanges reports whether the pull moved HEAD.
func (r *PullResult) HadChanges() bool {
	return r.FromSHA != r.ToSHA
}

// SyncResult is the outcome of one Poller check.
type SyncResult struct {
	FromSHA string `json:"from_sha"`
	ToSHA   string `json:"to_sha"`

	// ChangedFiles are absolute paths of the files that changed.
	ChangedFiles []string `json:"changed_files,omitempty"`

	// Skipped is set when the remote head is a commit that was rolled
	// back before and the checkout was reset without reloading.
	Skipped bool `json:"skipped,omitempty"`

	// RolledBack is set when the change callback failed and the checkout
	// was reset to FromSHA.
	RolledBack bool `json:"rolled_back,omitempty"`
}

// ShortSHA abbreviates a commit hash to eight characters.
func ShortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
