package models

import "time"

// Assessment info types.
const (
	InfoTypeComment       = "comment"
	InfoTypeClassifier    = "classifier"
	InfoTypeRating        = "rating"
	InfoTypeContainer     = "container"
	InfoTypeResponse      = "response"
	InfoTypeChangeRequest = "change-request"
)

// Assessment is an external review document attached to an artifact version,
// created by approvals and comments.
type Assessment struct {
	ID              string    `json:"id"`
	ArtifactURL     string    `json:"artifact_url"`
	ArtifactVersion string    `json:"artifact_version,omitempty"`
	InfoType        string    `json:"info_type"`
	Summary         string    `json:"summary,omitempty"`
	Author          string    `json:"author,omitempty"`
	RelatedArtifact string    `json:"related_artifact,omitempty"`
	Date            time.Time `json:"date"`
}

// Targets reports whether the assessment is attached to the artifact identity.
func (a *Assessment) Targets(c Canonical) bool {
	return a.ArtifactURL == c.URL && a.ArtifactVersion == c.Version
}
