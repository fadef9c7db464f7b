// Package main provides the entry point for the enclave application.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/snpvault/enclave-core/cmd/app/commands"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:     "enclave-core",
		Usage:    "Attested credential vault and exchange-balance snapshot service",
		Version:  version,
		Commands: getCommands(),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

// getCommands assembles the full CLI surface from its command groups,
// mirroring how the teacher aggregated system, key, and auth commands into
// one tree before handing it to cli.Command.
func getCommands() []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands()...)
	cmds = append(cmds, getKeyCommands()...)
	cmds = append(cmds, getSchedulerCommands()...)
	return cmds
}

func getSystemCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the admission HTTP server and the daily snapshot scheduler",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunMigrationsFromEnv()
			},
		},
		{
			Name:  "verify-attestation",
			Usage: "Fetch a fresh attestation report and print its verification outcome",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "format",
					Value: "text",
					Usage: "Output format: text or json",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunVerifyAttestation(ctx, os.Stdout, cmd.String("format"))
			},
		},
	}
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "rotate-master-key",
			Usage: "Generate and activate a new data-encryption key under the current master key",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunRotateMasterKey(ctx)
			},
		},
		{
			Name:  "migrate-master-key",
			Usage: "Re-wrap the active data-encryption key under the current master key after an enclave measurement change",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-provider",
					Usage: "KMS provider that encrypted the old master key (e.g. gcpkms, awskms, azurekeyvault, hashivault)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Usage: "KMS key URI used to decrypt the old master key",
				},
				&cli.StringFlag{
					Name:  "old-master-key",
					Usage: "Base64-encoded KMS ciphertext of the prior master key",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunMigrateMasterKey(
					ctx,
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
					cmd.String("old-master-key"),
				)
			},
		},
	}
}

func getSchedulerCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "trigger-sync",
			Usage: "Run one daily-snapshot pass immediately, outside the cron schedule",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunTriggerSync(ctx)
			},
		},
	}
}
