package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/curator/pkg/cmd"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/services"
	cli "github.com/urfave/cli/v3"
)

const dateLayout = "2006-01-02"

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  serviceName,
		Usage:                 "Manage the lifecycle and packaging of versioned knowledge artifacts",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Repository URL (file://, postgres://, memory://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider for lifecycle events (none, gochannel, kafka)",
				Value:   cmd.EventBusNone,
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the expansion cache; in-process cache when empty",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Commands: []*cli.Command{
			draftCommand(),
			releaseCommand(),
			retireCommand(),
			withdrawCommand(),
			approveCommand(),
			packageCommand(),
			inferParametersCommand(),
			validateCommand(),
		},
	}
}

func targetFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:     "url",
			Usage:    "Canonical URL of the artifact",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "version",
			Usage: "Version of the artifact; latest when omitted",
		},
	}, extra...)
}

func draftCommand() *cli.Command {
	return &cli.Command{
		Name:  "draft",
		Usage: "Create a draft of an active artifact and its owned components",
		Flags: targetFlags(&cli.StringFlag{
			Name:     "target-version",
			Usage:    "Release version the draft works towards",
			Required: true,
		}),
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) (any, error) {
			root, err := a.load(ctx, command)
			if err != nil {
				return nil, err
			}

			return a.lifecycle().Draft(ctx, root, services.DraftParams{Version: command.String("target-version")})
		}),
	}
}

func releaseCommand() *cli.Command {
	return &cli.Command{
		Name:  "release",
		Usage: "Release an approved draft and gather its dependencies",
		Flags: targetFlags(
			&cli.StringFlag{Name: "release-version", Usage: "Release version"},
			&cli.StringFlag{
				Name:  "version-behavior",
				Usage: "How to pick the release version (default, check, force)",
				Value: string(services.VersionDefault),
			},
			&cli.StringFlag{Name: "release-label", Usage: "Label stored on the released artifact"},
			&cli.StringFlag{Name: "require-non-experimental", Usage: "Experimental component handling (warn, error)"},
		),
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) (any, error) {
			root, err := a.load(ctx, command)
			if err != nil {
				return nil, err
			}

			return a.lifecycle().Release(ctx, root, services.ReleaseParams{
				Version:                command.String("release-version"),
				VersionBehavior:        services.VersionBehavior(command.String("version-behavior")),
				ReleaseLabel:           command.String("release-label"),
				RequireNonExperimental: command.String("require-non-experimental"),
			})
		}),
	}
}

func retireCommand() *cli.Command {
	return &cli.Command{
		Name:  "retire",
		Usage: "Retire an active artifact and its owned components",
		Flags: targetFlags(),
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) (any, error) {
			root, err := a.load(ctx, command)
			if err != nil {
				return nil, err
			}

			return a.lifecycle().Retire(ctx, root)
		}),
	}
}

func withdrawCommand() *cli.Command {
	return &cli.Command{
		Name:  "withdraw",
		Usage: "Delete a draft, its owned drafts and their assessments",
		Flags: targetFlags(),
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) (any, error) {
			root, err := a.load(ctx, command)
			if err != nil {
				return nil, err
			}

			return a.lifecycle().Withdraw(ctx, root)
		}),
	}
}

func approveCommand() *cli.Command {
	return &cli.Command{
		Name:  "approve",
		Usage: "Record an approval of an artifact",
		Flags: targetFlags(
			&cli.StringFlag{Name: "approval-date", Usage: "Approval date (YYYY-MM-DD), not before today; today when omitted"},
			&cli.StringFlag{Name: "info-type", Usage: "Assessment type (comment, classifier, rating, container, response, change-request)"},
			&cli.StringFlag{Name: "summary", Usage: "Assessment text"},
			&cli.StringFlag{Name: "author", Usage: "Assessment author"},
			&cli.StringFlag{Name: "target", Usage: "url|version the assessment is about; must match the artifact"},
			&cli.StringFlag{Name: "related-artifact", Usage: "Related artifact reference"},
		),
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) (any, error) {
			root, err := a.load(ctx, command)
			if err != nil {
				return nil, err
			}

			params := services.ApproveParams{
				InfoType:        command.String("info-type"),
				Summary:         command.String("summary"),
				Author:          command.String("author"),
				Target:          command.String("target"),
				RelatedArtifact: command.String("related-artifact"),
			}

			if raw := command.String("approval-date"); raw != "" {
				date, err := time.Parse(dateLayout, raw)
				if err != nil {
					return nil, &services.ServiceError{
						Op:      "approve",
						Code:    services.CodeInvalidParameter,
						Message: fmt.Sprintf("approval date %q is not YYYY-MM-DD", raw),
						Err:     services.ErrUnprocessableInput,
					}
				}

				params.ApprovalDate = &date
			}

			return a.lifecycle().Approve(ctx, root, params)
		}),
	}
}

func packageCommand() *cli.Command {
	return &cli.Command{
		Name:  "package",
		Usage: "Bundle an artifact with everything it references",
		Flags: targetFlags(
			&cli.StringSliceFlag{Name: "capability", Usage: "Allowed capability tags"},
			&cli.StringSliceFlag{Name: "check-version", Usage: "url|version every matching artifact must have"},
			&cli.StringSliceFlag{Name: "force-version", Usage: "url|version overriding any version"},
			&cli.StringSliceFlag{Name: "default-version", Usage: "url|version used when none is given"},
			&cli.StringSliceFlag{Name: "include", Usage: "Entry categories to include"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "Entry categories to exclude"},
			&cli.IntFlag{Name: "offset", Usage: "Entries to skip"},
			&cli.IntFlag{Name: "count", Usage: "Maximum entries to return"},
			&cli.StringFlag{Name: "bundle-type", Usage: "collection, transaction or searchset", Value: string(models.BundleCollection)},
			&cli.BoolFlag{Name: "expand", Usage: "Expand value sets"},
			&cli.StringFlag{Name: "terminology-endpoint", Usage: "Terminology server used for expansion"},
		),
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) (any, error) {
			root, err := a.load(ctx, command)
			if err != nil {
				return nil, err
			}

			params := services.PackageParams{
				Capability:          command.StringSlice("capability"),
				CheckVersion:        command.StringSlice("check-version"),
				ForceVersion:        command.StringSlice("force-version"),
				DefaultVersion:      command.StringSlice("default-version"),
				Include:             command.StringSlice("include"),
				Exclude:             command.StringSlice("exclude"),
				Offset:              command.Int("offset"),
				BundleType:          models.BundleType(command.String("bundle-type")),
				Expand:              command.Bool("expand"),
				TerminologyEndpoint: command.String("terminology-endpoint"),
			}

			if command.IsSet("count") {
				count := command.Int("count")
				params.Count = &count
			}

			return a.packager().Package(ctx, root, params)
		}),
	}
}

func inferParametersCommand() *cli.Command {
	return &cli.Command{
		Name:  "infer-parameters",
		Usage: "Derive expansion parameters from a manifest's dependencies",
		Flags: targetFlags(),
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) (any, error) {
			manifest, err := a.load(ctx, command)
			if err != nil {
				return nil, err
			}

			return a.packager().InferParameters(ctx, manifest)
		}),
	}
}

type healthResponse struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check that the repository is reachable",
		Action: withApp(func(ctx context.Context, _ *cli.Command, a *app) (any, error) {
			message, ok := a.lifecycle().HealthCheck(ctx)
			if !ok {
				return nil, errors.New(message)
			}

			return healthResponse{Healthy: ok, Message: message}, nil
		}),
	}
}
