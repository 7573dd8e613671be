package rpc

import (
	"context"
	"fmt"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a backend.Backend served by a daemon.
type Client struct {
	conn *grpc.ClientConn
}

var (
	_ backend.Backend  = (*Client)(nil)
	_ backend.Operator = (*Client)(nil)
)

// Dial connects to the daemon's Unix socket. The connection is lazy; the
// first call reports an unreachable daemon.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return fromStatus(c.conn.Invoke(ctx, fullMethod(method), in, out))
}

// Status describes the daemon.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.invoke(ctx, methodStatus, &Empty{}, &out)
	return out, err
}

func (c *Client) Accounts(ctx context.Context) ([]uint32, error) {
	var out AccountsResponse
	if err := c.invoke(ctx, methodAccounts, &Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

func (c *Client) AddAccount(ctx context.Context) (uint32, error) {
	var out AccountResponse
	err := c.invoke(ctx, methodAddAccount, &Empty{}, &out)
	return out.Account, err
}

func (c *Client) Login(ctx context.Context, account uint32, email, password string) error {
	return c.invoke(ctx, methodLogin, &LoginRequest{Account: account, Email: email, Password: password}, &Empty{})
}

func (c *Client) Import(ctx context.Context, account uint32, path string) error {
	return c.invoke(ctx, methodImport, &PathRequest{Account: account, Path: path}, &Empty{})
}

func (c *Client) Export(ctx context.Context, account uint32, path string) error {
	return c.invoke(ctx, methodExport, &PathRequest{Account: account, Path: path}, &Empty{})
}

func (c *Client) RemoveAccount(ctx context.Context, account uint32) error {
	return c.invoke(ctx, methodRemoveAccount, &AccountRequest{Account: account}, &Empty{})
}

func (c *Client) SelectAccount(ctx context.Context, account uint32) error {
	return c.invoke(ctx, methodSelectAccount, &AccountRequest{Account: account}, &Empty{})
}

func (c *Client) SelectedAccount(ctx context.Context) (uint32, bool, error) {
	var out SelectedAccountResponse
	if err := c.invoke(ctx, methodSelectedAccount, &Empty{}, &out); err != nil {
		return 0, false, err
	}
	return out.Account, out.Selected, nil
}

func (c *Client) AccountInfo(ctx context.Context, account uint32) (model.AccountInfo, error) {
	var out model.AccountInfo
	err := c.invoke(ctx, methodAccountInfo, &AccountRequest{Account: account}, &out)
	return out, err
}

func (c *Client) StartIO(ctx context.Context) error {
	return c.invoke(ctx, methodStartIO, &Empty{}, &Empty{})
}

func (c *Client) MaybeNetwork(ctx context.Context) error {
	return c.invoke(ctx, methodMaybeNetwork, &Empty{}, &Empty{})
}

func (c *Client) ChatList(ctx context.Context, account uint32, window model.Window) (model.ChatList, error) {
	var out model.ChatList
	err := c.invoke(ctx, methodChatList, &WindowRequest{Account: account, Window: window}, &out)
	return out, err
}

func (c *Client) MessageList(ctx context.Context, account uint32, window model.Window) (model.MessageList, error) {
	var out model.MessageList
	err := c.invoke(ctx, methodMessageList, &WindowRequest{Account: account, Window: window}, &out)
	return out, err
}

func (c *Client) chatCall(ctx context.Context, method string, account, chat uint32) (model.MessageList, error) {
	var out model.MessageList
	err := c.invoke(ctx, method, &ChatRequest{Account: account, Chat: chat}, &out)
	return out, err
}

func (c *Client) SelectChat(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return c.chatCall(ctx, methodSelectChat, account, chat)
}

func (c *Client) PinChat(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return c.chatCall(ctx, methodPinChat, account, chat)
}

func (c *Client) UnpinChat(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return c.chatCall(ctx, methodUnpinChat, account, chat)
}

func (c *Client) ArchiveChat(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return c.chatCall(ctx, methodArchiveChat, account, chat)
}

func (c *Client) UnarchiveChat(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return c.chatCall(ctx, methodUnarchiveChat, account, chat)
}

func (c *Client) AcceptContactRequest(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return c.chatCall(ctx, methodAcceptContactRequest, account, chat)
}

func (c *Client) BlockContact(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return c.chatCall(ctx, methodBlockContact, account, chat)
}

func (c *Client) SendTextMessage(ctx context.Context, account, chat uint32, text string) error {
	return c.invoke(ctx, methodSendTextMessage, &SendTextRequest{Account: account, Chat: chat, Text: text}, &Empty{})
}

func (c *Client) SendFileMessage(ctx context.Context, account, chat uint32, file backend.FileMessage) error {
	return c.invoke(ctx, methodSendFileMessage, &SendFileRequest{Account: account, Chat: chat, File: file}, &Empty{})
}

func (c *Client) Message(ctx context.Context, account, msgID uint32) (model.Message, error) {
	var out model.Message
	err := c.invoke(ctx, methodMessage, &MessageRequest{Account: account, MsgID: msgID}, &out)
	return out, err
}

func (c *Client) ChatName(ctx context.Context, account, chatID uint32) (string, error) {
	var out ChatNameResponse
	err := c.invoke(ctx, methodChatName, &ChatRequest{Account: account, Chat: chatID}, &out)
	return out.Name, err
}

func (c *Client) CreateChat(ctx context.Context, account uint32, addr, name string) (uint32, error) {
	var out CreateChatResponse
	err := c.invoke(ctx, methodCreateChat, &CreateChatRequest{Account: account, Addr: addr, Name: name}, &out)
	return out.Chat, err
}

// Subscribe opens the event stream. A reader goroutine forwards events
// until the stream ends; sends block, so a slow consumer slows the daemon's
// stream instead of losing events.
func (c *Client) Subscribe(ctx context.Context) (<-chan backend.Event, error) {
	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], fullMethod(methodSubscribe))
	if err != nil {
		return nil, fromStatus(err)
	}
	if err := stream.SendMsg(&Empty{}); err != nil {
		return nil, fromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fromStatus(err)
	}

	out := make(chan backend.Event, 64)
	go func() {
		defer close(out)
		for {
			var env EventEnvelope
			if err := stream.RecvMsg(&env); err != nil {
				return
			}
			select {
			case out <- env.Event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
