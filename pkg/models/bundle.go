package models

// BundleType is the shape of a package result.
type BundleType string

const (
	BundleCollection  BundleType = "collection"
	BundleTransaction BundleType = "transaction"
	BundleSearchset   BundleType = "searchset"
)

// Diagnostic severities.
const (
	SeverityError       = "error"
	SeverityWarning     = "warning"
	SeverityInformation = "information"
)

// Diagnostic is an issue recorded on a manifest instead of failing an operation.
type Diagnostic struct {
	Severity  string `json:"severity"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Reference string `json:"reference,omitempty"`
}

// EntryRequest is the write intent of a transaction bundle entry.
type EntryRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// BundleEntry is one artifact of a package.
type BundleEntry struct {
	Artifact *Artifact     `json:"artifact"`
	Roles    []string      `json:"roles,omitempty"`
	Request  *EntryRequest `json:"request,omitempty"`
	Outcome  []Diagnostic  `json:"outcome,omitempty"`
}

// Bundle is a distribution package. The manifest is always the first entry.
type Bundle struct {
	ID      string         `json:"id"`
	Type    BundleType     `json:"type"`
	Total   int            `json:"total"`
	Entries []*BundleEntry `json:"entries"`
	// Issues repeats the manifest diagnostics so they survive paging.
	Issues []Diagnostic `json:"issues,omitempty"`
}

// Manifest returns the first entry, or nil for an empty page.
func (b *Bundle) Manifest() *BundleEntry {
	if len(b.Entries) == 0 {
		return nil
	}

	return b.Entries[0]
}

// IsDegraded reports whether any resource was left out or altered with a diagnostic.
func (b *Bundle) IsDegraded() bool {
	for _, issue := range b.Issues {
		if issue.Severity == SeverityError || issue.Severity == SeverityWarning {
			return true
		}
	}

	return false
}
