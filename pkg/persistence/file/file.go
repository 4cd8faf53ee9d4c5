// Package file provides file-based persistence for artifacts and assessments.
package file

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/versioning"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

const (
	artifactsDir   = "artifacts"
	assessmentsDir = "assessments"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Persistence implements persistence.Repository with one JSON document per artifact and
// assessment under the root directory.
type Persistence struct {
	root             string
	logger           *slog.Logger
	mu               sync.Mutex
	artifactSchema   *gojsonschema.Schema
	assessmentSchema *gojsonschema.Schema
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string, logger *slog.Logger) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	artifactSchema, err := loadSchema("schemas/artifact.schema.json")
	if err != nil {
		return nil, err
	}

	assessmentSchema, err := loadSchema("schemas/assessment.schema.json")
	if err != nil {
		return nil, err
	}

	return &Persistence{
		root:             cleanRoot,
		logger:           logger,
		artifactSchema:   artifactSchema,
		assessmentSchema: assessmentSchema,
	}, nil
}

func loadSchema(name string) (*gojsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	return schema, nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) FindExact(_ context.Context, url, version string) (*models.Artifact, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	snap, err := fp.load()
	if err != nil {
		return nil, err
	}

	return snap.ArtifactAt(url, version), nil
}

func (fp *Persistence) FindLatest(_ context.Context, url string) (*models.Artifact, error) {
	return fp.findLatest(url, "")
}

func (fp *Persistence) FindLatestWithStatus(_ context.Context, url string, status models.ArtifactStatus) (*models.Artifact, error) {
	return fp.findLatest(url, status)
}

func (fp *Persistence) findLatest(url string, status models.ArtifactStatus) (*models.Artifact, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	snap, err := fp.load()
	if err != nil {
		return nil, err
	}

	var matches []*models.Artifact

	for _, a := range snap.artifacts {
		if a.URL == url && (status == "" || a.Status == status) {
			matches = append(matches, a)
		}
	}

	return versioning.Latest(matches), nil
}

// FindByID retrieves an artifact by its storage id from the file system.
func (fp *Persistence) FindByID(_ context.Context, id string) (*models.Artifact, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	var artifact models.Artifact

	found, err := fp.readDocument(artifactsDir, id, fp.artifactSchema, &artifact)
	if err != nil || !found {
		return nil, err
	}

	return &artifact, nil
}

func (fp *Persistence) FindAssessments(_ context.Context, url, version string) ([]*models.Assessment, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	snap, err := fp.load()
	if err != nil {
		return nil, err
	}

	target := models.Canonical{URL: url, Version: version}
	found := make([]*models.Assessment, 0)

	for _, a := range snap.assessments {
		if a.Targets(target) {
			found = append(found, a)
		}
	}

	return found, nil
}

// SubmitTransaction validates every write and document, stages the new documents as
// temporary files and only then moves them into place and removes deleted documents.
func (fp *Persistence) SubmitTransaction(ctx context.Context, writes []models.Write) (*models.TransactionResult, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	snap, err := fp.load()
	if err != nil {
		return nil, err
	}

	outcomes, err := persistence.CheckWrites(writes, snap)
	if err != nil {
		return nil, err
	}

	staged := make([]stagedFile, 0, len(writes))
	cleanup := func() {
		for _, s := range staged {
			_ = os.Remove(s.temp)
		}
	}

	var removals []string

	for _, w := range writes {
		dir, id, schema, doc := fp.target(w)

		if w.Method == models.WriteDelete {
			removals = append(removals, fp.path(dir, id))

			continue
		}

		s, err := fp.stage(dir, id, schema, doc)
		if err != nil {
			cleanup()

			return nil, err
		}

		staged = append(staged, s)
	}

	for _, s := range staged {
		if err := os.Rename(s.temp, s.final); err != nil {
			cleanup()

			return nil, fmt.Errorf("failed to move %s into place: %w", s.final, err)
		}
	}

	for _, path := range removals {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	fp.logger.DebugContext(ctx, "transaction committed", "writes", len(writes), "root", fp.root)

	return &models.TransactionResult{ID: uuid.NewString(), Outcomes: outcomes}, nil
}

type stagedFile struct {
	temp  string
	final string
}

func (fp *Persistence) target(w models.Write) (string, string, *gojsonschema.Schema, any) {
	if w.Assessment != nil {
		return assessmentsDir, w.Assessment.ID, fp.assessmentSchema, w.Assessment
	}

	return artifactsDir, w.Artifact.ID, fp.artifactSchema, w.Artifact
}

func (fp *Persistence) stage(dir, id string, schema *gojsonschema.Schema, doc any) (stagedFile, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return stagedFile{}, fmt.Errorf("failed to marshal %s/%s: %w", dir, id, err)
	}

	if err := validate(schema, data); err != nil {
		return stagedFile{}, fmt.Errorf("%s/%s: %w", dir, id, err)
	}

	if err := os.MkdirAll(filepath.Join(fp.root, dir), 0750); err != nil {
		return stagedFile{}, fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	tmp, err := os.CreateTemp(filepath.Join(fp.root, dir), "."+id+".*.tmp")
	if err != nil {
		return stagedFile{}, fmt.Errorf("failed to stage %s/%s: %w", dir, id, err)
	}

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()

	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())

		return stagedFile{}, fmt.Errorf("failed to stage %s/%s: %w", dir, id, err)
	}

	return stagedFile{temp: tmp.Name(), final: fp.path(dir, id)}, nil
}

func (fp *Persistence) path(dir, id string) string {
	return filepath.Clean(filepath.Join(fp.root, dir, id+".json"))
}

func (fp *Persistence) readDocument(dir, id string, schema *gojsonschema.Schema, out any) (bool, error) {
	body, err := os.ReadFile(fp.path(dir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s/%s: %w", dir, id, err)
	}

	if err := validate(schema, body); err != nil {
		return false, fmt.Errorf("%s/%s: %w", dir, id, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s/%s: %w", dir, id, err)
	}

	return true, nil
}

func (fp *Persistence) load() (*snapshot, error) {
	snap := &snapshot{
		artifacts:   make(map[string]*models.Artifact),
		assessments: make(map[string]*models.Assessment),
	}

	ids, err := fp.list(artifactsDir)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		var artifact models.Artifact
		if _, err := fp.readDocument(artifactsDir, id, fp.artifactSchema, &artifact); err != nil {
			return nil, err
		}

		snap.artifacts[artifact.ID] = &artifact
	}

	ids, err = fp.list(assessmentsDir)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		var assessment models.Assessment
		if _, err := fp.readDocument(assessmentsDir, id, fp.assessmentSchema, &assessment); err != nil {
			return nil, err
		}

		snap.assessments[assessment.ID] = &assessment
	}

	return snap, nil
}

func (fp *Persistence) list(dir string) ([]string, error) {
	root := filepath.Join(fp.root, dir)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(root), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", dir, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}

func validate(schema *gojsonschema.Schema, document []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("%w: %w", persistence.ErrInvalidDocument, err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		messages = append(messages, e.String())
	}

	return fmt.Errorf("%w: %s", persistence.ErrInvalidDocument, strings.Join(messages, "; "))
}

type snapshot struct {
	artifacts   map[string]*models.Artifact
	assessments map[string]*models.Assessment
}

func (s *snapshot) ArtifactByID(id string) *models.Artifact {
	return s.artifacts[id]
}

func (s *snapshot) ArtifactAt(url, version string) *models.Artifact {
	for _, a := range s.artifacts {
		if a.URL == url && a.Version == version {
			return a
		}
	}

	return nil
}

func (s *snapshot) AssessmentByID(id string) *models.Assessment {
	return s.assessments[id]
}
