package services

import (
	"errors"
	"testing"
	"time"

	"github.com/dukex/curator/pkg/mocks"
	"github.com/dukex/curator/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_Release_RequiresApproval(t *testing.T) {
	a := library("a", "1.0.0-draft", models.StatusDraft)
	repo := seeded(t, a)
	lifecycle := newTestLifecycle(repo)
	params := ReleaseParams{Version: "1.0.0", VersionBehavior: VersionDefault}

	_, err := lifecycle.Release(t.Context(), a, params)
	require.Error(t, err)
	assert.True(t, IsPreconditionFailed(err))
	assert.Contains(t, err.Error(), "must be approved")
	assert.Equal(t, models.StatusDraft, find(t, repo, "a", "1.0.0-draft").Status)

	result, err := lifecycle.Release(t.Context(), approved(a), params)
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, result.Artifact.Status)
	assert.Equal(t, "1.0.0", result.Artifact.Version)

	stored := find(t, repo, "a", "1.0.0")
	require.NotNil(t, stored)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Equal(t, clock, stored.LastModified)
	assert.Nil(t, find(t, repo, "a", "1.0.0-draft"))
}

func TestLifecycle_Release_ActivatesSubtreeAndBuildsManifest(t *testing.T) {
	root := artifactOf(models.KindStructureDefinition, "profile", "1.0.0-draft", models.StatusDraft,
		owns("comp", "1.0.0-draft"),
		dependsOn("vs"),
		&models.Edge{Reference: base + "cs|2.0.0", Extensions: map[string]string{"note": "pinned"}},
	)
	root.Elements = []models.Element{
		{Path: "Observation.code", MustSupport: true, Binding: &models.Binding{Strength: "required", ValueSet: base + "vs"}},
	}
	start := clock.Add(-72 * time.Hour)
	root.EffectivePeriod = &models.Period{Start: &start}
	approved(root)

	comp := library("comp", "1.0.0-draft", models.StatusDraft, dependsOn("dep|1.0.0"), dependsOn("vs|1.0.0"))

	repo := seeded(t, root, comp,
		artifactOf(models.KindValueSet, "vs", "1.0.0", models.StatusActive),
		artifactOf(models.KindValueSet, "vs", "2.0.0", models.StatusActive),
		artifactOf(models.KindValueSet, "vs", "3.0.0-draft", models.StatusDraft),
		artifactOf(models.KindCodeSystem, "cs", "2.0.0", models.StatusActive),
		library("dep", "1.0.0", models.StatusActive, dependsOn("deep|1.0.0")),
		library("deep", "1.0.0", models.StatusActive),
	)

	result, err := newTestLifecycle(repo).Release(t.Context(), root, ReleaseParams{
		VersionBehavior: VersionDefault,
		ReleaseLabel:    "2026 Q1",
	})
	require.NoError(t, err)
	require.Len(t, result.Writes, 2)

	released := find(t, repo, "profile", "1.0.0")
	require.NotNil(t, released)
	assert.Equal(t, "2026 Q1", released.Extensions[models.ExtReleaseLabel])

	releasedComp := find(t, repo, "comp", "1.0.0")
	require.NotNil(t, releasedComp)
	assert.Equal(t, models.StatusActive, releasedComp.Status)
	assert.Equal(t, clock, releasedComp.LastModified)
	assert.Equal(t, root.EffectivePeriod.Start, releasedComp.EffectivePeriod.Start)
	assert.NotContains(t, releasedComp.Extensions, models.ExtReleaseLabel)

	assert.Equal(t, base+"comp|1.0.0", edgeTo(released, base+"comp").Reference)

	deps := released.DependencyEdges()
	require.Len(t, deps, 4)

	for _, edge := range deps {
		assert.True(t, edge.HasRole(models.RoleDefault), edge.Reference)
	}

	vs := edgeTo(released, base+"vs")
	assert.Equal(t, base+"vs|2.0.0", vs.Reference)
	assert.Equal(t, []string{models.RoleDefault, models.RoleKey}, vs.RoleTags)
	assert.Equal(t, models.KindValueSet, vs.TargetKind)

	cs := edgeTo(released, base+"cs")
	assert.Equal(t, []string{models.RoleDefault}, cs.RoleTags)
	assert.Equal(t, "pinned", cs.Extensions["note"])

	assert.Equal(t, base+"dep|1.0.0", edgeTo(released, base+"dep").Reference)
	assert.Equal(t, base+"deep|1.0.0", edgeTo(released, base+"deep").Reference)

	assert.Equal(t, []string{models.RoleDefault}, edgeTo(releasedComp, base+"dep").RoleTags)
}

func TestLifecycle_Release_KeepsEdgesOutsideManifest(t *testing.T) {
	citation := &models.Edge{Display: "citation without resource", Extensions: map[string]string{"kind": "citation"}}
	root := approved(library("lib", "1.0.0-draft", models.StatusDraft,
		owns("comp", "1.0.0-draft"),
		citation,
		dependsOn("dep|1.0.0"),
		dependsOn("comp"),
	))
	repo := seeded(t, root,
		library("comp", "1.0.0-draft", models.StatusDraft),
		library("dep", "1.0.0", models.StatusActive),
	)

	_, err := newTestLifecycle(repo).Release(t.Context(), root, ReleaseParams{VersionBehavior: VersionDefault})
	require.NoError(t, err)

	released := find(t, repo, "lib", "1.0.0")
	require.NotNil(t, released)

	var refs []string
	for _, edge := range released.Edges {
		refs = append(refs, edge.Reference)
	}

	require.Len(t, released.Edges, 4, "edges: %v", refs)
	assert.True(t, released.Edges[0].Owned)
	assert.Equal(t, base+"dep|1.0.0", released.Edges[1].Reference)

	kept := released.Edges[2]
	assert.Empty(t, kept.Reference)
	assert.Equal(t, "citation without resource", kept.Display)
	assert.Equal(t, map[string]string{"kind": "citation"}, kept.Extensions)

	internal := released.Edges[3]
	assert.False(t, internal.Owned)
	assert.Equal(t, base+"comp", internal.Target().URL)
}

func TestLifecycle_Release_FirstSeenEdgeKeepsItsRoles(t *testing.T) {
	root := approved(library("lib", "1.0.0-draft", models.StatusDraft,
		owns("profile", "1.0.0-draft"),
		dependsOn("vs|1.0.0"),
	))

	profile := artifactOf(models.KindStructureDefinition, "profile", "1.0.0-draft", models.StatusDraft, dependsOn("vs|1.0.0"))
	profile.Elements = []models.Element{
		{Path: "Observation.code", MustSupport: true, Binding: &models.Binding{Strength: "required", ValueSet: base + "vs"}},
	}

	repo := seeded(t, root, profile, artifactOf(models.KindValueSet, "vs", "1.0.0", models.StatusActive))

	_, err := newTestLifecycle(repo).Release(t.Context(), root, ReleaseParams{VersionBehavior: VersionDefault})
	require.NoError(t, err)

	released := find(t, repo, "lib", "1.0.0")
	require.Len(t, released.DependencyEdges(), 1)
	assert.Equal(t, []string{models.RoleDefault}, edgeTo(released, base+"vs").RoleTags)

	releasedProfile := find(t, repo, "profile", "1.0.0")
	assert.Equal(t, []string{models.RoleDefault, models.RoleKey}, edgeTo(releasedProfile, base+"vs").RoleTags)
}

func TestLifecycle_Release_DeclaredPackageVersion(t *testing.T) {
	root := approved(library("lib", "1.0.0-draft", models.StatusDraft, dependsOn("vs")))
	root.PackageVersions = map[string]string{"pkg.a": "3.0.0"}

	vs3 := artifactOf(models.KindValueSet, "vs", "3.0.0", models.StatusActive)
	vs3.SourcePackageTag = "pkg.a#3.0.0"
	vs4 := artifactOf(models.KindValueSet, "vs", "4.0.0", models.StatusActive)
	vs4.SourcePackageTag = "pkg.a#4.0.0"

	repo := seeded(t, root, vs3, vs4)

	_, err := newTestLifecycle(repo).Release(t.Context(), root, ReleaseParams{VersionBehavior: VersionDefault})
	require.NoError(t, err)

	assert.Equal(t, base+"vs|3.0.0", edgeTo(find(t, repo, "lib", "1.0.0"), base+"vs").Reference)
}

func TestLifecycle_Release_UnresolvableDependencyStaysUnversioned(t *testing.T) {
	root := approved(library("lib", "1.0.0-draft", models.StatusDraft, dependsOn("elsewhere")))
	repo := seeded(t, root)

	_, err := newTestLifecycle(repo).Release(t.Context(), root, ReleaseParams{VersionBehavior: VersionDefault})
	require.NoError(t, err)

	edge := edgeTo(find(t, repo, "lib", "1.0.0"), base+"elsewhere")
	require.NotNil(t, edge)
	assert.Equal(t, base+"elsewhere", edge.Reference)
	assert.Equal(t, []string{models.RoleDefault}, edge.RoleTags)
}

func TestLifecycle_Release_PinsActiveComponents(t *testing.T) {
	root := approved(library("lib", "1.0.0-draft", models.StatusDraft, owns("comp", "0.9.0")))
	repo := seeded(t, root, library("comp", "0.9.0", models.StatusActive))

	result, err := newTestLifecycle(repo).Release(t.Context(), root, ReleaseParams{VersionBehavior: VersionDefault})
	require.NoError(t, err)

	require.Len(t, result.Writes, 1)
	assert.Equal(t, base+"comp|0.9.0", edgeTo(result.Artifact, base+"comp").Reference)
	assert.Nil(t, find(t, repo, "comp", "1.0.0"))
}

func TestLifecycle_Release_VersionBehavior(t *testing.T) {
	tests := []struct {
		name     string
		draft    string
		params   ReleaseParams
		want     string
		checkErr func(error) bool
	}{
		{name: "default keeps draft version", draft: "1.0.0-draft", params: ReleaseParams{Version: "2.0.0", VersionBehavior: VersionDefault}, want: "1.0.0"},
		{name: "default falls back to parameter", draft: "", params: ReleaseParams{Version: "2.0.0", VersionBehavior: VersionDefault}, want: "2.0.0"},
		{name: "check agrees", draft: "1.0.0-draft", params: ReleaseParams{Version: "1.0.0", VersionBehavior: VersionCheck}, want: "1.0.0"},
		{name: "check disagrees", draft: "1.0.0-draft", params: ReleaseParams{Version: "2.0.0", VersionBehavior: VersionCheck}, checkErr: IsPreconditionFailed},
		{name: "force overrides", draft: "1.0.0-draft", params: ReleaseParams{Version: "1.5.0", VersionBehavior: VersionForce}, want: "1.5.0"},
		{name: "force without version", draft: "1.0.0-draft", params: ReleaseParams{VersionBehavior: VersionForce}, checkErr: IsUnprocessableInput},
		{name: "force invalid version", draft: "1.0.0-draft", params: ReleaseParams{Version: "1.5", VersionBehavior: VersionForce}, checkErr: IsUnprocessableInput},
		{name: "behavior missing", draft: "1.0.0-draft", params: ReleaseParams{Version: "1.0.0"}, checkErr: IsUnprocessableInput},
		{name: "behavior unknown", draft: "1.0.0-draft", params: ReleaseParams{Version: "1.0.0", VersionBehavior: "latest"}, checkErr: IsUnprocessableInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := approved(library("lib", tt.draft, models.StatusDraft))
			root.ID = "lib"
			repo := seeded(t, root)

			result, err := newTestLifecycle(repo).Release(t.Context(), root, tt.params)

			if tt.checkErr != nil {
				require.Error(t, err)
				assert.True(t, tt.checkErr(err), "got %v", err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Artifact.Version)
		})
	}
}

func TestLifecycle_Release_Preconditions(t *testing.T) {
	early := clock.Add(-72 * time.Hour)

	tests := []struct {
		name    string
		setup   func() (*models.Artifact, []*models.Artifact)
		params  ReleaseParams
		wantErr func(error) bool
	}{
		{
			name: "not a draft",
			setup: func() (*models.Artifact, []*models.Artifact) {
				return approved(library("lib", "1.0.0", models.StatusActive)), nil
			},
			wantErr: IsPreconditionFailed,
		},
		{
			name: "approved before last modification",
			setup: func() (*models.Artifact, []*models.Artifact) {
				root := library("lib", "1.0.0-draft", models.StatusDraft)
				root.ApprovalDate = &early

				return root, nil
			},
			wantErr: IsPreconditionFailed,
		},
		{
			name: "release version taken",
			setup: func() (*models.Artifact, []*models.Artifact) {
				return approved(library("lib", "1.0.0-draft", models.StatusDraft)),
					[]*models.Artifact{library("lib", "1.0.0", models.StatusActive)}
			},
			wantErr: IsPreconditionFailed,
		},
		{
			name: "retired component",
			setup: func() (*models.Artifact, []*models.Artifact) {
				return approved(library("lib", "1.0.0-draft", models.StatusDraft, owns("comp", "0.1.0"))),
					[]*models.Artifact{library("comp", "0.1.0", models.StatusRetired)}
			},
			wantErr: IsPreconditionFailed,
		},
		{
			name: "experimental component rejected",
			setup: func() (*models.Artifact, []*models.Artifact) {
				comp := library("comp", "1.0.0-draft", models.StatusDraft)
				comp.Experimental = true

				return approved(library("lib", "1.0.0-draft", models.StatusDraft, owns("comp", "1.0.0-draft"))),
					[]*models.Artifact{comp}
			},
			params:  ReleaseParams{VersionBehavior: VersionDefault, RequireNonExperimental: ExperimentalError},
			wantErr: IsPreconditionFailed,
		},
		{
			name: "owned component missing",
			setup: func() (*models.Artifact, []*models.Artifact) {
				return approved(library("lib", "1.0.0-draft", models.StatusDraft, owns("comp", "1.0.0-draft"))), nil
			},
			wantErr: IsResourceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, others := tt.setup()
			repo := seeded(t, append(others, root)...)
			before := repo.Len()

			params := tt.params
			if params.VersionBehavior == "" {
				params.VersionBehavior = VersionDefault
			}

			_, err := newTestLifecycle(repo).Release(t.Context(), root, params)
			require.Error(t, err)
			assert.True(t, tt.wantErr(err), "got %v", err)
			assert.Equal(t, before, repo.Len())
			assert.Equal(t, root.Status, find(t, repo, "lib", root.Version).Status)
		})
	}
}

func TestLifecycle_Release_ExperimentalWarnOnly(t *testing.T) {
	root := approved(library("lib", "1.0.0-draft", models.StatusDraft))
	root.Experimental = true
	repo := seeded(t, root)

	_, err := newTestLifecycle(repo).Release(t.Context(), root, ReleaseParams{
		VersionBehavior:        VersionDefault,
		RequireNonExperimental: ExperimentalWarn,
	})
	require.NoError(t, err)
	assert.NotNil(t, find(t, repo, "lib", "1.0.0"))
}

func TestLifecycle_Release_PublishFailureKeepsCommit(t *testing.T) {
	root := approved(library("lib", "1.0.0-draft", models.StatusDraft))
	repo := seeded(t, root)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, base+"lib", mock.AnythingOfType("events.ArtifactReleased")).
		Return(errors.New("broker down")).Once()

	_, err := newTestLifecycle(repo, WithEventPublisher(bus)).Release(t.Context(), root, ReleaseParams{VersionBehavior: VersionDefault})
	require.NoError(t, err)

	bus.AssertExpectations(t)
	assert.NotNil(t, find(t, repo, "lib", "1.0.0"))
}
