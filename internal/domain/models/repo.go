package models

import "time"

// Repo clone status values. Cloning and syncing are performed by an external
// worker; this service only records the outcome it reports.
const (
	RepoStatusPending = "pending"
	RepoStatusReady   = "ready"
	RepoStatusFailed  = "failed"
)

// Repo is a registered source repository that conversations are scoped to.
type Repo struct {
	ID            string     `json:"id" db:"id"`
	UserID        string     `json:"user_id" db:"user_id"`
	Name          string     `json:"name" db:"name"`
	CloneURL      string     `json:"clone_url" db:"clone_url"`
	DefaultBranch string     `json:"default_branch" db:"default_branch"`
	Status        string     `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
