package models

// WriteMethod is the kind of change a write applies.
type WriteMethod string

const (
	WriteCreate WriteMethod = "create"
	WriteUpdate WriteMethod = "update"
	WriteDelete WriteMethod = "delete"
)

// Write is one document change inside a transaction. Exactly one of Artifact or
// Assessment is set.
type Write struct {
	Method     WriteMethod `json:"method"`
	Artifact   *Artifact   `json:"artifact,omitempty"`
	Assessment *Assessment `json:"assessment,omitempty"`
}

// CreateArtifact returns a create write.
func CreateArtifact(a *Artifact) Write {
	return Write{Method: WriteCreate, Artifact: a}
}

// UpdateArtifact returns an update write.
func UpdateArtifact(a *Artifact) Write {
	return Write{Method: WriteUpdate, Artifact: a}
}

// DeleteArtifact returns a delete write.
func DeleteArtifact(a *Artifact) Write {
	return Write{Method: WriteDelete, Artifact: a}
}

// CreateAssessment returns a create write for an assessment.
func CreateAssessment(a *Assessment) Write {
	return Write{Method: WriteCreate, Assessment: a}
}

// DeleteAssessment returns a delete write for an assessment.
func DeleteAssessment(a *Assessment) Write {
	return Write{Method: WriteDelete, Assessment: a}
}

// ResourceType names the document kind the write touches.
func (w Write) ResourceType() string {
	if w.Assessment != nil {
		return "Assessment"
	}

	if w.Artifact != nil {
		return string(w.Artifact.Kind)
	}

	return ""
}

// DocumentID returns the storage id of the written document.
func (w Write) DocumentID() string {
	if w.Assessment != nil {
		return w.Assessment.ID
	}

	if w.Artifact != nil {
		return w.Artifact.ID
	}

	return ""
}

// WriteOutcome reports the result of one write.
type WriteOutcome struct {
	Method       WriteMethod `json:"method"`
	ResourceType string      `json:"resource_type"`
	ID           string      `json:"id"`
}

// TransactionResult is returned by a committed transaction.
type TransactionResult struct {
	ID       string         `json:"id"`
	Outcomes []WriteOutcome `json:"outcomes"`
}
