package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/dukex/curator/pkg/cmd"
	"github.com/dukex/curator/pkg/eventbus"
	"github.com/dukex/curator/pkg/log"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/otelhelper"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/services"
	"github.com/dukex/curator/pkg/terminology"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "curator"

// app holds the collaborators shared by every command of one invocation.
type app struct {
	logger     *slog.Logger
	repository persistence.Repository
	eventBus   eventbus.EventBus
	cache      terminology.Cache
	shutdown   otelhelper.ShutdownFunc
	opts       []services.Option
}

func newApp(ctx context.Context, command *cli.Command) (*app, error) {
	logger := log.Setup(command.String("log-level"), command.String("log-format")).With("module", serviceName)

	repository, err := cmd.NewPersistence(ctx, command.String("database-url"), logger)
	if err != nil {
		return nil, err
	}

	a := &app{logger: logger, repository: repository}

	a.eventBus, err = cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		a.close(ctx)

		return nil, err
	}

	if a.eventBus != nil {
		a.opts = append(a.opts, services.WithEventPublisher(a.eventBus))
	}

	a.cache, err = cmd.NewExpansionCache(ctx, command.String("redis-url"))
	if err != nil {
		a.close(ctx)

		return nil, err
	}

	a.opts = append(a.opts,
		services.WithExpander(terminology.NewComposeExpander()),
		services.WithExpansionCache(a.cache),
	)

	if command.Bool("otel") {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			a.close(ctx)

			return nil, fmt.Errorf("failed to start tracing: %w", err)
		}

		a.shutdown = shutdown
		a.opts = append(a.opts, services.WithTracer(tracer))
	}

	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			a.logger.ErrorContext(ctx, "Failed to shut down tracing", "error", err)
		}
	}

	if closer, ok := a.cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close expansion cache", "error", err)
		}
	}

	if a.eventBus != nil {
		if err := a.eventBus.Close(); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}

	if err := a.repository.Close(ctx); err != nil {
		a.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}

func (a *app) lifecycle() *services.Lifecycle {
	return services.NewLifecycle(a.repository, a.logger, a.opts...)
}

func (a *app) packager() *services.Packager {
	return services.NewPackager(a.repository, a.logger, a.opts...)
}

// load fetches the artifact named by --url and --version, the latest one when no version
// is given.
func (a *app) load(ctx context.Context, command *cli.Command) (*models.Artifact, error) {
	url, version := command.String("url"), command.String("version")

	var (
		artifact *models.Artifact
		err      error
	)

	if version != "" {
		artifact, err = a.repository.FindExact(ctx, url, version)
	} else {
		artifact, err = a.repository.FindLatest(ctx, url)
	}

	if err != nil {
		return nil, err
	}

	if artifact == nil {
		return nil, fmt.Errorf("%w: %s", services.ErrResourceNotFound, models.Canonical{URL: url, Version: version})
	}

	return artifact, nil
}

// withApp wraps a command action with setup and teardown of the shared collaborators.
func withApp(action func(ctx context.Context, command *cli.Command, a *app) (any, error)) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		a, err := newApp(ctx, command)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		result, err := action(ctx, command, a)
		if err != nil {
			return err
		}

		return writeJSON(command.Root().Writer, result)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	return nil
}

// run executes the CLI and returns the process exit code. Operation failures are written
// to stderr as problem documents.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	command := newCommand()
	command.Writer = stdout
	command.ErrWriter = stderr

	err := command.Run(ctx, args)
	if err == nil {
		return 0
	}

	problem := problemFor(err)
	_ = writeJSON(stderr, problem)

	return exitCode(problem.Status)
}
