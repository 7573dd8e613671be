package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/rpc"
	"github.com/spf13/cobra"
)

// accountFlag selects the account of chat commands; 0 means the selected
// account.
var accountFlag uint32

func resolveAccount(ctx context.Context, c *rpc.Client) (uint32, error) {
	if accountFlag != 0 {
		return accountFlag, nil
	}
	id, ok, err := c.SelectedAccount(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.New("no account selected; pass --account")
	}
	return id, nil
}

func newChatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chats",
		Aliases: []string{"chat"},
		Short:   "List and create chats",
	}
	cmd.PersistentFlags().Uint32Var(&accountFlag, "account", 0, "account id (default: selected account)")
	cmd.AddCommand(newChatsListCmd())
	cmd.AddCommand(newChatsCreateCmd())
	return cmd
}

type jsonChat struct {
	ID       uint32 `json:"id"`
	Name     string `json:"name"`
	Preview  string `json:"preview,omitempty"`
	Fresh    int    `json:"fresh"`
	Pinned   bool   `json:"pinned,omitempty"`
	Archived bool   `json:"archived,omitempty"`
	Request  bool   `json:"contact_request,omitempty"`
	LastDate string `json:"last_date,omitempty"`
}

func toJSONChats(chats []model.ChatSummary) []jsonChat {
	out := make([]jsonChat, 0, len(chats))
	for _, c := range chats {
		j := jsonChat{
			ID:       c.ID,
			Name:     c.Name,
			Preview:  c.Preview,
			Fresh:    c.FreshMsgCount,
			Pinned:   c.IsPinned,
			Archived: c.IsArchived,
			Request:  c.IsContactRequest,
		}
		if !c.Timestamp.IsZero() {
			j.LastDate = c.Timestamp.Format(time.RFC3339)
		}
		out = append(out, j)
	}
	return out
}

func newChatsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chats of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd, func(ctx context.Context, c *rpc.Client) error {
				acc, err := resolveAccount(ctx, c)
				if err != nil {
					return err
				}
				list, err := c.ChatList(ctx, acc, &model.Range{Start: 0, End: limit})
				if err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(toJSONChats(list.Chats))
				}
				if len(list.Chats) == 0 {
					fmt.Println("No chats.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tFRESH\tFLAGS\tLAST MESSAGE")
				for _, ch := range list.Chats {
					fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", ch.ID, ch.Name, ch.FreshMsgCount, flags(ch), truncate(ch.Preview, 50))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				if list.Len > len(list.Chats) {
					fmt.Printf("(%d of %d chats)\n", len(list.Chats), list.Len)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of chats")
	return cmd
}

func flags(c model.ChatSummary) string {
	var f []string
	if c.IsPinned {
		f = append(f, "pinned")
	}
	if c.IsArchived {
		f = append(f, "archived")
	}
	if c.IsContactRequest {
		f = append(f, "request")
	}
	return strings.Join(f, ",")
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func newChatsCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create <address>",
		Short: "Start a chat with an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, func(ctx context.Context, c *rpc.Client) error {
				acc, err := resolveAccount(ctx, c)
				if err != nil {
					return err
				}
				id, err := c.CreateChat(ctx, acc, args[0], name)
				if err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(jsonAction{OK: true, Action: "create", Account: acc, Chat: id})
				}
				fmt.Printf("Chat %d created.\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "contact name")
	return cmd
}

func newSendCmd() *cobra.Command {
	var (
		chat  uint32
		file  string
		image bool
	)
	cmd := &cobra.Command{
		Use:   "send --chat <id> [text]",
		Short: "Send a message or a file",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if chat == 0 {
				return errors.New("--chat is required")
			}
			if text == "" && file == "" {
				return errors.New("nothing to send")
			}
			return call(cmd, func(ctx context.Context, c *rpc.Client) error {
				acc, err := resolveAccount(ctx, c)
				if err != nil {
					return err
				}
				if file == "" {
					err = c.SendTextMessage(ctx, acc, chat, text)
				} else {
					var msg backend.FileMessage
					if msg, err = fileMessage(file, text, image); err == nil {
						err = c.SendFileMessage(ctx, acc, chat, msg)
					}
				}
				if err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(jsonAction{OK: true, Action: "send", Account: acc, Chat: chat})
				}
				fmt.Println("Queued.")
				return nil
			})
		},
	}
	cmd.Flags().Uint32Var(&accountFlag, "account", 0, "account id (default: selected account)")
	cmd.Flags().Uint32Var(&chat, "chat", 0, "chat id")
	cmd.Flags().StringVar(&file, "file", "", "attach a file")
	cmd.Flags().BoolVar(&image, "image", false, "send the file as an image")
	return cmd
}

func fileMessage(path, caption string, image bool) (backend.FileMessage, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return backend.FileMessage{}, err
	}
	msg := backend.FileMessage{
		Viewtype: model.ViewtypeFile,
		Path:     abs,
		Text:     caption,
		Mime:     mime.TypeByExtension(strings.ToLower(filepath.Ext(abs))),
	}
	if image {
		msg.Viewtype = model.ViewtypeImage
	}
	return msg, nil
}
