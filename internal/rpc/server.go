package rpc

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type chatFunc func(ctx context.Context, account, chat uint32) (model.MessageList, error)

// ServerOptions describes the daemon for Status.
type ServerOptions struct {
	Profile string
}

// Server serves a backend on a Unix socket.
type Server struct {
	backend  backend.Backend
	operator backend.Operator
	opts     ServerOptions
	started  time.Time
	logger   *zap.Logger

	grpcServer *grpc.Server
	listener   net.Listener
	socketPath string
}

func (*Server) serveBackend() {}

// NewServer binds socketPath and registers the Backend service. Operator
// methods are served when b also implements backend.Operator.
func NewServer(socketPath string, b backend.Backend, logger *zap.Logger, opts ServerOptions) (*Server, error) {
	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	s := &Server{
		backend:    b,
		opts:       opts,
		started:    time.Now(),
		logger:     logger,
		grpcServer: grpc.NewServer(),
		listener:   listener,
		socketPath: socketPath,
	}
	if op, ok := b.(backend.Operator); ok {
		s.operator = op
	}
	s.grpcServer.RegisterService(&serviceDesc, s)
	return s, nil
}

// Start serves requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("gRPC server starting", zap.String("socket", s.socketPath))
	return s.grpcServer.Serve(s.listener)
}

// Stop shuts down gracefully, forcing open streams closed when ctx ends
// first, and removes the socket file.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("gRPC server stopping")
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
		<-done
	}
	_ = os.Remove(s.socketPath)
}

func (s *Server) status(ctx context.Context, _ *Empty) (*StatusResponse, error) {
	ids, err := s.backend.Accounts(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &StatusResponse{
		Profile:   s.opts.Profile,
		PID:       os.Getpid(),
		StartedAt: s.started,
		Accounts:  len(ids),
	}, nil
}

func (s *Server) accounts(ctx context.Context, _ *Empty) (*AccountsResponse, error) {
	ids, err := s.backend.Accounts(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AccountsResponse{Accounts: ids}, nil
}

func (s *Server) addAccount(ctx context.Context, _ *Empty) (*AccountResponse, error) {
	id, err := s.backend.AddAccount(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AccountResponse{Account: id}, nil
}

func (s *Server) login(ctx context.Context, in *LoginRequest) (*Empty, error) {
	return &Empty{}, toStatus(s.backend.Login(ctx, in.Account, in.Email, in.Password))
}

func (s *Server) importAccount(ctx context.Context, in *PathRequest) (*Empty, error) {
	return &Empty{}, toStatus(s.backend.Import(ctx, in.Account, in.Path))
}

func (s *Server) export(ctx context.Context, in *PathRequest) (*Empty, error) {
	if s.operator == nil {
		return nil, grpcstatus.Error(codes.Unimplemented, "export not supported")
	}
	return &Empty{}, toStatus(s.operator.Export(ctx, in.Account, in.Path))
}

func (s *Server) removeAccount(ctx context.Context, in *AccountRequest) (*Empty, error) {
	return &Empty{}, toStatus(s.backend.RemoveAccount(ctx, in.Account))
}

func (s *Server) selectAccount(ctx context.Context, in *AccountRequest) (*Empty, error) {
	return &Empty{}, toStatus(s.backend.SelectAccount(ctx, in.Account))
}

func (s *Server) selectedAccount(ctx context.Context, _ *Empty) (*SelectedAccountResponse, error) {
	id, ok, err := s.backend.SelectedAccount(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SelectedAccountResponse{Account: id, Selected: ok}, nil
}

func (s *Server) accountInfo(ctx context.Context, in *AccountRequest) (*model.AccountInfo, error) {
	info, err := s.backend.AccountInfo(ctx, in.Account)
	if err != nil {
		return nil, toStatus(err)
	}
	return &info, nil
}

func (s *Server) startIO(ctx context.Context, _ *Empty) (*Empty, error) {
	return &Empty{}, toStatus(s.backend.StartIO(ctx))
}

func (s *Server) maybeNetwork(ctx context.Context, _ *Empty) (*Empty, error) {
	return &Empty{}, toStatus(s.backend.MaybeNetwork(ctx))
}

func (s *Server) chatList(ctx context.Context, in *WindowRequest) (*model.ChatList, error) {
	list, err := s.backend.ChatList(ctx, in.Account, in.Window)
	if err != nil {
		return nil, toStatus(err)
	}
	return &list, nil
}

func (s *Server) messageList(ctx context.Context, in *WindowRequest) (*model.MessageList, error) {
	list, err := s.backend.MessageList(ctx, in.Account, in.Window)
	if err != nil {
		return nil, toStatus(err)
	}
	return &list, nil
}

func (s *Server) sendText(ctx context.Context, in *SendTextRequest) (*Empty, error) {
	return &Empty{}, toStatus(s.backend.SendTextMessage(ctx, in.Account, in.Chat, in.Text))
}

func (s *Server) sendFile(ctx context.Context, in *SendFileRequest) (*Empty, error) {
	return &Empty{}, toStatus(s.backend.SendFileMessage(ctx, in.Account, in.Chat, in.File))
}

func (s *Server) message(ctx context.Context, in *MessageRequest) (*model.Message, error) {
	m, err := s.backend.Message(ctx, in.Account, in.MsgID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &m, nil
}

func (s *Server) chatName(ctx context.Context, in *ChatRequest) (*ChatNameResponse, error) {
	name, err := s.backend.ChatName(ctx, in.Account, in.Chat)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ChatNameResponse{Name: name}, nil
}

func (s *Server) createChat(ctx context.Context, in *CreateChatRequest) (*CreateChatResponse, error) {
	if s.operator == nil {
		return nil, grpcstatus.Error(codes.Unimplemented, "create chat not supported")
	}
	id, err := s.operator.CreateChat(ctx, in.Account, in.Addr, in.Name)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CreateChatResponse{Chat: id}, nil
}

// subscribe streams backend events until the client goes away or the
// backend closes the subscription.
func (s *Server) subscribe(stream grpc.ServerStream) error {
	ctx := stream.Context()
	ch, err := s.backend.Subscribe(ctx)
	if err != nil {
		return toStatus(err)
	}
	s.logger.Debug("event stream opened")
	defer s.logger.Debug("event stream closed")

	for ev := range ch {
		env := &EventEnvelope{
			EventID:          uuid.New().String(),
			OccurredAtUnixMs: time.Now().UnixMilli(),
			Event:            ev,
		}
		if err := stream.SendMsg(env); err != nil {
			return err
		}
	}
	return ctx.Err()
}
