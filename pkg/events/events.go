// Package events defines event types and structures for artifact lifecycle notifications.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every artifact lifecycle event.
const Topic = "curator.artifacts"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ArtifactDraftedEvent   EventType = "artifact.drafted"
	ArtifactReleasedEvent  EventType = "artifact.released"
	ArtifactRetiredEvent   EventType = "artifact.retired"
	ArtifactWithdrawnEvent EventType = "artifact.withdrawn"
	ArtifactApprovedEvent  EventType = "artifact.approved"
	ArtifactPackagedEvent  EventType = "artifact.packaged"
)

type BaseEvent struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	URL           string         `json:"url"`
	Version       string         `json:"version,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Key is the partition key used when publishing: the canonical URL.
func (b BaseEvent) Key() string {
	return b.URL
}

type ArtifactDrafted struct {
	BaseEvent

	SourceVersion string   `json:"source_version"`
	Created       []string `json:"created"`
	Adopted       []string `json:"adopted,omitempty"`
}

func (e ArtifactDrafted) GetType() EventType {
	return ArtifactDraftedEvent
}

type ArtifactReleased struct {
	BaseEvent

	ReleaseLabel string   `json:"release_label,omitempty"`
	Components   []string `json:"components"`
	Dependencies int      `json:"dependencies"`
}

func (e ArtifactReleased) GetType() EventType {
	return ArtifactReleasedEvent
}

type ArtifactRetired struct {
	BaseEvent

	Components []string `json:"components"`
}

func (e ArtifactRetired) GetType() EventType {
	return ArtifactRetiredEvent
}

type ArtifactWithdrawn struct {
	BaseEvent

	Deleted     []string `json:"deleted"`
	Assessments int      `json:"assessments"`
}

func (e ArtifactWithdrawn) GetType() EventType {
	return ArtifactWithdrawnEvent
}

type ArtifactApproved struct {
	BaseEvent

	AssessmentID string    `json:"assessment_id"`
	ApprovalDate time.Time `json:"approval_date"`
}

func (e ArtifactApproved) GetType() EventType {
	return ArtifactApprovedEvent
}

type ArtifactPackaged struct {
	BaseEvent

	BundleType models.BundleType `json:"bundle_type"`
	Total      int               `json:"total"`
	Entries    int               `json:"entries"`
}

func (e ArtifactPackaged) GetType() EventType {
	return ArtifactPackagedEvent
}

func NewBaseEvent(eventType EventType, artifact models.Canonical, transactionID string) BaseEvent {
	return BaseEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		URL:           artifact.URL,
		Version:       artifact.Version,
		TransactionID: transactionID,
		Metadata:      make(map[string]any),
	}
}

// ErrUnknownEventType is returned by Decode for types this package does not define.
var ErrUnknownEventType = errors.New("unknown event type")

// Decode unmarshals payload into the concrete event struct for eventType.
func Decode(eventType EventType, payload []byte) (any, error) {
	var event any

	switch eventType {
	case ArtifactDraftedEvent:
		event = &ArtifactDrafted{}
	case ArtifactReleasedEvent:
		event = &ArtifactReleased{}
	case ArtifactRetiredEvent:
		event = &ArtifactRetired{}
	case ArtifactWithdrawnEvent:
		event = &ArtifactWithdrawn{}
	case ArtifactApprovedEvent:
		event = &ArtifactApproved{}
	case ArtifactPackagedEvent:
		event = &ArtifactPackaged{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", eventType, err)
	}

	return event, nil
}
