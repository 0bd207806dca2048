package git

// Stager marks generated artifact paths for inclusion in the next
// commit. pyragen never consumes a response from the staging side: a
// failed Add is logged by the caller but must not abort a run.
type Stager interface {
	// Add stages path (relative to the stager's working directory).
	Add(path string) error

	// IsGitRepo reports whether the working directory is inside a git
	// repository. Used to downgrade staging to a no-op with a warning
	// instead of failing every Add.
	IsGitRepo() bool
}

// NopStager discards all staging requests. Used for --no-stage runs and
// as the test default.
type NopStager struct{}

// Compile-time check that NopStager implements Stager.
var _ Stager = NopStager{}

// Add does nothing.
func (NopStager) Add(string) error { return nil }

// IsGitRepo always reports true so callers never log a missing-repo
// warning for an intentionally disabled stager.
func (NopStager) IsGitRepo() bool { return true }
