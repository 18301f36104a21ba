package config

// VCSConfig configures the Incorporator's version-control client (spec §4.5,
// the Ground pipeline stage's `git log`/`git diff` reads and the
// Incorporator's `git add`/`git commit`/`git checkout` writes).
type VCSConfig struct {
	// Binary is the git executable to invoke.
	Binary string `yaml:"binary"`

	// CommitAuthorName/Email attribute incorporated improvements.
	CommitAuthorName  string `yaml:"commit_author_name"`
	CommitAuthorEmail string `yaml:"commit_author_email"`

	// CommitMessagePrefix tags commits made by the pipeline.
	CommitMessagePrefix string `yaml:"commit_message_prefix"`

	// CheckoutTimeout bounds a rollback's `git checkout` subprocess call.
	CheckoutTimeout string `yaml:"checkout_timeout"`
}

// DefaultVCSConfig returns sensible defaults.
func DefaultVCSConfig() VCSConfig {
	return VCSConfig{
		Binary:              "git",
		CommitAuthorName:    "evolution-pipeline",
		CommitAuthorEmail:   "evolution-pipeline@localhost",
		CommitMessagePrefix: "[evolve]",
		CheckoutTimeout:     "10s",
	}
}
