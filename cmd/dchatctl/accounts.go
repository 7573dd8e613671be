package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/matheus3301/dchat/internal/command"
	"github.com/matheus3301/dchat/internal/engine"
	"github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/rpc"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// passwordEnv supplies the password for "accounts add" without a prompt.
const passwordEnv = "DCHAT_PASSWORD"

type jsonAction struct {
	OK      bool   `json:"ok"`
	Action  string `json:"action"`
	Account uint32 `json:"account,omitempty"`
	Chat    uint32 `json:"chat,omitempty"`
}

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Manage accounts",
	}
	cmd.AddCommand(newAccountsListCmd())
	cmd.AddCommand(newAccountsAddCmd())
	cmd.AddCommand(newAccountsImportCmd())
	cmd.AddCommand(newAccountsExportCmd())
	cmd.AddCommand(newAccountsRemoveCmd())
	cmd.AddCommand(newAccountsSelectCmd())
	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd, func(ctx context.Context, c *rpc.Client) error {
				ids, err := c.Accounts(ctx)
				if err != nil {
					return err
				}
				selected, hasSelected, err := c.SelectedAccount(ctx)
				if err != nil {
					return err
				}
				infos := make([]model.AccountInfo, 0, len(ids))
				for _, id := range ids {
					info, err := c.AccountInfo(ctx, id)
					if err != nil {
						return fmt.Errorf("account %d: %w", id, err)
					}
					infos = append(infos, info)
				}

				if jsonFlag {
					return printJSON(infos)
				}
				if len(infos) == 0 {
					fmt.Println("No accounts. Run 'dchatctl accounts add <address>' to add one.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "\tID\tADDRESS\tNAME\tCONFIGURED")
				for _, info := range infos {
					marker := ""
					if hasSelected && info.ID == selected {
						marker = "*"
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%t\n", marker, info.ID, info.Email, info.DisplayName, info.Configured)
				}
				return w.Flush()
			})
		},
	}
}

func newAccountsAddCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "add <address>",
		Short: "Add an account by logging in",
		Long:  "Add an account by logging in. The password is read from --password, $" + passwordEnv + " or the terminal.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(password)
			if err != nil {
				return err
			}
			return bootstrap(cmd, "add", command.Login{Email: args[0], Password: pw})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newAccountsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <backup>",
		Short: "Add an account from a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return bootstrap(cmd, "import", command.ImportAccount{Path: path})
		},
	}
}

// bootstrap adds an account and removes it again if setup fails.
func bootstrap(cmd *cobra.Command, action string, setup command.Command) error {
	return call(cmd, func(ctx context.Context, c *rpc.Client) error {
		id, err := engine.Bootstrap(ctx, c, setup)
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(jsonAction{OK: true, Action: action, Account: id})
		}
		fmt.Printf("Account %d added.\n", id)
		return nil
	})
}

func newAccountsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <path>",
		Short: "Write a backup of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			return call(cmd, func(ctx context.Context, c *rpc.Client) error {
				if err := c.Export(ctx, id, path); err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(jsonAction{OK: true, Action: "export", Account: id})
				}
				fmt.Printf("Account %d exported to %s\n", id, path)
				return nil
			})
		},
	}
}

func newAccountsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an account and all its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return call(cmd, func(ctx context.Context, c *rpc.Client) error {
				if err := c.RemoveAccount(ctx, id); err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(jsonAction{OK: true, Action: "remove", Account: id})
				}
				fmt.Printf("Account %d removed.\n", id)
				return nil
			})
		},
	}
}

func newAccountsSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <id>",
		Short: "Make an account the selected one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return call(cmd, func(ctx context.Context, c *rpc.Client) error {
				if err := c.SelectAccount(ctx, id); err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(jsonAction{OK: true, Action: "select", Account: id})
				}
				fmt.Printf("Account %d selected.\n", id)
				return nil
			})
		},
	}
}

func readPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no password given: use --password or $" + passwordEnv)
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint32(id), nil
}
