// Package graph implements the traversal shared by every lifecycle and packaging
// operation over the owned/dependency reference graph of artifacts.
package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/curator/pkg/models"
)

// Visit describes the node handed to a VisitFunc.
type Visit struct {
	Node   *models.Artifact
	Parent *models.Artifact // nil for the root
	Edge   *models.Edge     // edge followed from Parent, nil for the root
	Depth  int
}

// IsRoot reports whether the visit is the walk's starting node.
func (v Visit) IsRoot() bool {
	return v.Parent == nil
}

// VisitFunc is invoked once per node. It may mutate the node and returns the edges the
// walker should follow next. Returning ErrSkip stops descent below the node; any other
// error aborts the walk.
type VisitFunc func(ctx context.Context, v Visit) ([]*models.Edge, error)

// Options controls which edges are followed.
type Options struct {
	OwnedOnly bool
}

// Walker performs a depth-first walk from a root artifact. Nodes are visited at most once
// per walk, keyed by canonical URL regardless of version.
type Walker struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewWalker creates a walker resolving edges through resolver.
func NewWalker(resolver Resolver, logger *slog.Logger) *Walker {
	return &Walker{
		resolver: resolver,
		logger:   logger.With("module", "graph"),
	}
}

// Walk visits root and every node reachable through the followed edges. Unresolvable owned
// references fail with *UnresolvedError; unresolvable dependencies are left alone and not
// descended into.
func (w *Walker) Walk(ctx context.Context, root *models.Artifact, fn VisitFunc, opts Options) error {
	visited := make(map[string]struct{})

	return w.walk(ctx, Visit{Node: root}, fn, opts, visited)
}

func (w *Walker) walk(ctx context.Context, v Visit, fn VisitFunc, opts Options, visited map[string]struct{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, seen := visited[v.Node.URL]; seen {
		return nil
	}

	visited[v.Node.URL] = struct{}{}

	edges, err := fn(ctx, v)
	if errors.Is(err, ErrSkip) {
		return nil
	}

	if err != nil {
		return err
	}

	for _, edge := range edges {
		if opts.OwnedOnly && !edge.Owned {
			continue
		}

		target, err := w.resolver.Resolve(ctx, edge.Target())
		if err != nil {
			return err
		}

		if target == nil {
			if edge.Owned {
				return &UnresolvedError{Reference: edge.Reference, Source: v.Node.Canonical().String()}
			}

			w.logger.DebugContext(ctx, "dependency not resolvable, not descending",
				"reference", edge.Reference,
				"source", v.Node.Canonical().String())

			continue
		}

		next := Visit{Node: target, Parent: v.Node, Edge: edge, Depth: v.Depth + 1}
		if err := w.walk(ctx, next, fn, opts, visited); err != nil {
			return err
		}
	}

	return nil
}

// Collect walks from root and returns every visited artifact in visit order, the root first.
func (w *Walker) Collect(ctx context.Context, root *models.Artifact, opts Options) ([]Visit, error) {
	var visits []Visit

	err := w.Walk(ctx, root, func(_ context.Context, v Visit) ([]*models.Edge, error) {
		visits = append(visits, v)

		return v.Node.Edges, nil
	}, opts)
	if err != nil {
		return nil, err
	}

	return visits, nil
}
