package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	cmdutil "github.com/heysubinoy/kvgate/cmd"
	"github.com/heysubinoy/kvgate/internal/api"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const DefaultAddress = "localhost:9090"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	cmdutil.CatchCtrlC(cancel)

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		cmdutil.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

type cliConfig struct {
	address string
	timeout time.Duration
}

func newRootCommand(out io.Writer) *cobra.Command {
	cfg := &cliConfig{}

	cmd := &cobra.Command{
		Use:           "kv-cli",
		Short:         "Read and write keys through a kvgate gRPC endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cmdutil.SetFlagsFromEnvVariables(cmd.Flags())
		},
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&cfg.address, "address", DefaultAddress, "kvgate gRPC address")
	cmd.PersistentFlags().DurationVar(&cfg.timeout, "timeout", 5*time.Second, "Timeout for each call")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print the value of a key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cfg.call(cmd, func(ctx context.Context, client *api.Client) (string, error) {
					return client.Get(ctx, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set the value of a key",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cfg.call(cmd, func(ctx context.Context, client *api.Client) (string, error) {
					return client.Set(ctx, args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "test",
			Short: "Write and read back a sentinel value",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return cfg.call(cmd, func(ctx context.Context, client *api.Client) (string, error) {
					return client.Test(ctx)
				})
			},
		},
	)
	return cmd
}

func (cfg *cliConfig) call(cmd *cobra.Command, fn func(context.Context, *api.Client) (string, error)) error {
	conn, err := dialInsecure(cfg.address)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.address, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	result, err := fn(ctx, api.NewClient(conn))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

func dialInsecure(address string) (*grpc.ClientConn, error) {
	// passthrough resolver for direct address connection
	return grpc.NewClient("passthrough:///"+address, grpc.WithTransportCredentials(insecure.NewCredentials()))
}
