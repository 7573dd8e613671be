// Package rpc exposes a backend over gRPC on a Unix socket. Messages are
// plain Go structs encoded as JSON.
package rpc

import (
	"context"

	"github.com/matheus3301/dchat/internal/model"
	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "dchat.v1.Backend"

// Method names.
const (
	methodStatus               = "Status"
	methodAccounts             = "Accounts"
	methodAddAccount           = "AddAccount"
	methodLogin                = "Login"
	methodImport               = "Import"
	methodExport               = "Export"
	methodRemoveAccount        = "RemoveAccount"
	methodSelectAccount        = "SelectAccount"
	methodSelectedAccount      = "SelectedAccount"
	methodAccountInfo          = "AccountInfo"
	methodStartIO              = "StartIO"
	methodMaybeNetwork         = "MaybeNetwork"
	methodChatList             = "ChatList"
	methodMessageList          = "MessageList"
	methodSelectChat           = "SelectChat"
	methodPinChat              = "PinChat"
	methodUnpinChat            = "UnpinChat"
	methodArchiveChat          = "ArchiveChat"
	methodUnarchiveChat        = "UnarchiveChat"
	methodAcceptContactRequest = "AcceptContactRequest"
	methodBlockContact         = "BlockContact"
	methodSendTextMessage      = "SendTextMessage"
	methodSendFileMessage      = "SendFileMessage"
	methodMessage              = "Message"
	methodChatName             = "ChatName"
	methodCreateChat           = "CreateChat"
	methodSubscribe            = "Subscribe"
)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// handler is the type registered with the grpc server.
type handler interface {
	serveBackend()
}

// unary builds a method descriptor for a handler taking *Req and
// returning *Resp.
func unary[Req, Resp any](name string, call func(*Server, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

// chatMethod builds a descriptor for the chat mutations, which share a
// request and response shape.
func chatMethod(name string, pick func(*Server) chatFunc) grpc.MethodDesc {
	return unary(name, func(s *Server, ctx context.Context, in *ChatRequest) (*model.MessageList, error) {
		list, err := pick(s)(ctx, in.Account, in.Chat)
		if err != nil {
			return nil, toStatus(err)
		}
		return &list, nil
	})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*handler)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodStatus, (*Server).status),
		unary(methodAccounts, (*Server).accounts),
		unary(methodAddAccount, (*Server).addAccount),
		unary(methodLogin, (*Server).login),
		unary(methodImport, (*Server).importAccount),
		unary(methodExport, (*Server).export),
		unary(methodRemoveAccount, (*Server).removeAccount),
		unary(methodSelectAccount, (*Server).selectAccount),
		unary(methodSelectedAccount, (*Server).selectedAccount),
		unary(methodAccountInfo, (*Server).accountInfo),
		unary(methodStartIO, (*Server).startIO),
		unary(methodMaybeNetwork, (*Server).maybeNetwork),
		unary(methodChatList, (*Server).chatList),
		unary(methodMessageList, (*Server).messageList),
		chatMethod(methodSelectChat, func(s *Server) chatFunc { return s.backend.SelectChat }),
		chatMethod(methodPinChat, func(s *Server) chatFunc { return s.backend.PinChat }),
		chatMethod(methodUnpinChat, func(s *Server) chatFunc { return s.backend.UnpinChat }),
		chatMethod(methodArchiveChat, func(s *Server) chatFunc { return s.backend.ArchiveChat }),
		chatMethod(methodUnarchiveChat, func(s *Server) chatFunc { return s.backend.UnarchiveChat }),
		chatMethod(methodAcceptContactRequest, func(s *Server) chatFunc { return s.backend.AcceptContactRequest }),
		chatMethod(methodBlockContact, func(s *Server) chatFunc { return s.backend.BlockContact }),
		unary(methodSendTextMessage, (*Server).sendText),
		unary(methodSendFileMessage, (*Server).sendFile),
		unary(methodMessage, (*Server).message),
		unary(methodChatName, (*Server).chatName),
		unary(methodCreateChat, (*Server).createChat),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    methodSubscribe,
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				var in Empty
				if err := stream.RecvMsg(&in); err != nil {
					return err
				}
				return srv.(*Server).subscribe(stream)
			},
		},
	},
	Metadata: "dchat/v1/backend",
}
