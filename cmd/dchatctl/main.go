package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/matheus3301/dchat/internal/config"
	"github.com/matheus3301/dchat/internal/profile"
	"github.com/matheus3301/dchat/internal/rpc"
	"github.com/spf13/cobra"
)

var (
	profileFlag string
	configFlag  string
	jsonFlag    bool
	timeoutFlag time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dchatctl",
		Short:        "Control a running dchatd",
		SilenceUsage: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	root.PersistentFlags().StringVar(&configFlag, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 30*time.Second, "timeout for daemon calls")

	root.AddCommand(newStatusCmd())
	root.AddCommand(newAccountsCmd())
	root.AddCommand(newChatsCmd())
	root.AddCommand(newSendCmd())
	return root
}

// dial connects to the daemon of the selected profile.
func dial(cmd *cobra.Command) (*rpc.Client, context.Context, context.CancelFunc, error) {
	path := configFlag
	if path == "" {
		path = profile.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	name, err := profile.Resolve(profileFlag, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := rpc.Dial(profile.SocketPath(name))
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
	return c, ctx, cancel, nil
}

// call runs fn against the daemon and turns an unreachable daemon into a
// hint.
func call(cmd *cobra.Command, fn func(ctx context.Context, c *rpc.Client) error) error {
	c, ctx, cancel, err := dial(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = c.Close() }()

	err = fn(ctx, c)
	if rpc.IsUnavailable(err) {
		return fmt.Errorf("daemon not running; start it with dchatd or dchat: %w", err)
	}
	return err
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd, func(ctx context.Context, c *rpc.Client) error {
				st, err := c.Status(ctx)
				if err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(st)
				}
				fmt.Printf("Profile:  %s\n", st.Profile)
				fmt.Printf("PID:      %d\n", st.PID)
				fmt.Printf("Uptime:   %s\n", time.Since(st.StartedAt).Round(time.Second))
				fmt.Printf("Accounts: %d\n", st.Accounts)
				return nil
			})
		},
	}
}

// printJSON encodes v as indented JSON to stdout.
func printJSON(v any) error {
	return fprintJSON(os.Stdout, v)
}

func fprintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
