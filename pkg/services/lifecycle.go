// Package services implements the artifact lifecycle operations and packaging on top of the
// graph walker.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/curator/pkg/eventbus"
	"github.com/dukex/curator/pkg/graph"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/otelhelper"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/roles"
	"github.com/dukex/curator/pkg/terminology"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName   = "github.com/dukex/curator/pkg/services"
	dayPrecision = 24 * time.Hour
)

type config struct {
	publisher  eventbus.EventPublisher
	classifier roles.Classifier
	tracer     trace.Tracer
	now        func() time.Time
	expander   terminology.Expander
	cache      terminology.Cache
}

// Option customizes Lifecycle and Packager.
type Option func(*config)

// WithEventPublisher publishes an event after every committed operation.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(c *config) { c.publisher = publisher }
}

// WithClassifier replaces the default role classifier.
func WithClassifier(classifier roles.Classifier) Option {
	return func(c *config) { c.classifier = classifier }
}

// WithTracer replaces the globally registered tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) { c.tracer = tracer }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithExpander enables value set expansion during packaging.
func WithExpander(expander terminology.Expander) Option {
	return func(c *config) { c.expander = expander }
}

// WithExpansionCache caches leaf expansions computed during packaging.
func WithExpansionCache(cache terminology.Cache) Option {
	return func(c *config) { c.cache = cache }
}

func newConfig(opts []Option) config {
	c := config{
		classifier: roles.NewClassifier(),
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// Lifecycle runs Draft, Release, Retire, Withdraw and Approve. Each operation reads the
// repository, builds every write in memory and submits a single transaction.
type Lifecycle struct {
	config

	repository persistence.Repository
	logger     *slog.Logger
	validate   *validator.Validate
}

// NewLifecycle creates a new lifecycle service.
func NewLifecycle(repository persistence.Repository, logger *slog.Logger, opts ...Option) *Lifecycle {
	return &Lifecycle{
		config:     newConfig(opts),
		repository: repository,
		logger:     logger.With("module", "lifecycle"),
		validate:   newValidator(),
	}
}

// Result is the outcome of a committed lifecycle operation.
type Result struct {
	Artifact    *models.Artifact          `json:"artifact"`
	Assessment  *models.Assessment        `json:"assessment,omitempty"`
	Writes      []models.Write            `json:"writes"`
	Transaction *models.TransactionResult `json:"transaction"`
}

// HealthCheck checks the health of the persistence layer.
func (l *Lifecycle) HealthCheck(ctx context.Context) (string, bool) {
	if l.repository == nil {
		return "Persistence layer not initialized", false
	}

	err := l.repository.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (l *Lifecycle) walker() *graph.Walker {
	return graph.NewWalker(graph.NewCache(graph.NewRepositoryResolver(l.repository)), l.logger)
}

func (c *config) startSpan(ctx context.Context, name string, artifact *models.Artifact) (context.Context, trace.Span) {
	return otelhelper.StartSpan(ctx, c.tracer, name,
		attribute.String(otelhelper.ArtifactURLKey, artifact.URL),
		attribute.String(otelhelper.ArtifactVersionKey, artifact.Version),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		otelhelper.SetError(span, err)
	}

	span.End()
}

func (c *config) today() time.Time {
	return c.now().UTC().Truncate(dayPrecision)
}

// commit submits the transaction, mapping repository conflicts onto the service taxonomy.
func (l *Lifecycle) commit(ctx context.Context, op string, writes []models.Write) (*models.TransactionResult, error) {
	tx, err := l.repository.SubmitTransaction(ctx, writes)
	if err != nil {
		return nil, classify(op, err)
	}

	l.logger.InfoContext(ctx, "transaction committed", "operation", op, "transaction_id", tx.ID, "writes", len(writes))

	return tx, nil
}

// publish never fails the operation: the transaction is already committed.
func (c *config) publish(ctx context.Context, logger *slog.Logger, key string, event eventbus.Event) {
	if c.publisher == nil {
		return
	}

	if err := c.publisher.Publish(ctx, key, event); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func canonicals(artifacts []*models.Artifact) []string {
	out := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, a.Canonical().String())
	}

	return out
}
