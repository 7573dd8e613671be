package tui

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matheus3301/dchat/internal/command"
	"github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/projection"
)

// ErrEmptyInput is returned for blank composer input.
var ErrEmptyInput = errors.New("nothing to send")

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// ParseInput turns composer text into a send command. Lines starting with
// "/" are attachment commands; "//" sends a literal slash.
func ParseInput(text string) (command.Command, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if !strings.HasPrefix(text, "/") {
		return command.SendTextMessage{Text: text}, nil
	}
	if strings.HasPrefix(text, "//") {
		return command.SendTextMessage{Text: text[1:]}, nil
	}

	c := ParseCommand(text[1:])
	switch c.Name {
	case "file", "image":
		path, caption, err := splitPath(c.Args)
		if err != nil {
			return nil, fmt.Errorf("/%s: %w", c.Name, err)
		}
		msg := command.SendFileMessage{
			Viewtype: model.ViewtypeFile,
			Path:     path,
			Text:     caption,
			Mime:     mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		}
		if c.Name == "image" {
			msg.Viewtype = model.ViewtypeImage
			if msg.Mime == "image/gif" {
				msg.Viewtype = model.ViewtypeGif
			}
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown command /%s (start with // to send a slash)", c.Name)
	}
}

// splitPath takes a leading path, optionally double quoted, off args and
// makes it absolute. The rest is the caption.
func splitPath(args string) (path, rest string, err error) {
	if args == "" {
		return "", "", errors.New("path is required")
	}
	if strings.HasPrefix(args, `"`) {
		end := strings.Index(args[1:], `"`)
		if end < 0 {
			return "", "", errors.New("unterminated quote")
		}
		path, rest = args[1:end+1], args[end+2:]
	} else {
		path, rest, _ = strings.Cut(args, " ")
	}
	path, err = expandPath(path)
	return path, strings.TrimSpace(rest), err
}

// expandPath resolves "~/" and relative paths. The backend may run in
// another process with its own working directory.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}

// Page names.
const (
	pageAccounts = "accounts"
	pageChats    = "chats"
	pageChat     = "chat"
	pageDetail   = "detail"
	pageLogin    = "login"
	pageHelp     = "help"
)

// resolution is the effect of a ":" command.
type resolution struct {
	cmd  command.Command // sent to the engine when set
	page string          // pushed when set
	quit bool
}

// commandHelp documents the ":" commands on the help page.
var commandHelp = [][2]string{
	{":account <id>", "switch account"},
	{":accounts", "list accounts"},
	{":chat <id>", "open a chat"},
	{":login", "add an account"},
	{":import <path>", "add an account from a backup"},
	{":detail [id]", "show account details"},
	{":pin, :unpin", "pin the selected chat"},
	{":archive, :unarchive", "archive the selected chat"},
	{":accept, :block", "answer a contact request"},
	{":network", "reconnect now"},
	{":quit", "exit"},
}

func resolveCommand(c Command, s projection.State) (resolution, error) {
	switch c.Name {
	case "q", "quit", "exit":
		return resolution{quit: true}, nil
	case "help", "h":
		return resolution{page: pageHelp}, nil
	case "accounts":
		return resolution{page: pageAccounts}, nil
	case "chats":
		return resolution{page: pageChats}, nil
	case "login", "add":
		return resolution{page: pageLogin}, nil
	case "network", "net":
		return resolution{cmd: command.MaybeNetwork{}}, nil

	case "account", "acc":
		id, err := parseID(c.Args)
		if err != nil {
			return resolution{}, err
		}
		if _, ok := s.Shared.Accounts[id]; !ok {
			return resolution{}, fmt.Errorf("no account %d", id)
		}
		return resolution{cmd: command.SelectAccount{Account: id}, page: pageChats}, nil

	case "chat":
		id, err := parseID(c.Args)
		if err != nil {
			return resolution{}, err
		}
		if s.Shared.SelectedAccount == nil {
			return resolution{}, errors.New("no account selected")
		}
		return resolution{cmd: command.SelectChat{Account: *s.Shared.SelectedAccount, Chat: id}, page: pageChat}, nil

	case "import":
		if c.Args == "" {
			return resolution{}, errors.New("usage: import <path>")
		}
		path, err := expandPath(c.Args)
		if err != nil {
			return resolution{}, err
		}
		return resolution{cmd: command.ImportAccount{Path: path}}, nil

	case "detail":
		var id uint32
		switch {
		case c.Args != "":
			var err error
			if id, err = parseID(c.Args); err != nil {
				return resolution{}, err
			}
		case s.Shared.SelectedAccount != nil:
			id = *s.Shared.SelectedAccount
		default:
			return resolution{}, errors.New("no account selected")
		}
		return resolution{cmd: command.GetAccountDetail{Account: id}, page: pageDetail}, nil

	case "pin", "unpin", "archive", "unarchive", "accept", "block":
		acc, chat, err := selectedChat(s)
		if err != nil {
			return resolution{}, err
		}
		return resolution{cmd: chatCommand(c.Name, acc, chat)}, nil
	}
	return resolution{}, fmt.Errorf("unknown command %q", c.Name)
}

func chatCommand(name string, acc, chat uint32) command.Command {
	switch name {
	case "pin":
		return command.PinChat{Account: acc, Chat: chat}
	case "unpin":
		return command.UnpinChat{Account: acc, Chat: chat}
	case "archive":
		return command.ArchiveChat{Account: acc, Chat: chat}
	case "unarchive":
		return command.UnarchiveChat{Account: acc, Chat: chat}
	case "accept":
		return command.AcceptContactRequest{Account: acc, Chat: chat}
	case "block":
		return command.BlockContact{Account: acc, Chat: chat}
	}
	return nil
}

func selectedChat(s projection.State) (acc, chat uint32, err error) {
	if s.Shared.SelectedAccount == nil || s.Shared.SelectedChatID == nil {
		return 0, 0, errors.New("no chat selected")
	}
	return *s.Shared.SelectedAccount, *s.Shared.SelectedChatID, nil
}

func parseID(arg string) (uint32, error) {
	if arg == "" {
		return 0, errors.New("id is required")
	}
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return uint32(id), nil
}
