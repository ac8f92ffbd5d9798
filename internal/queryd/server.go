// Package queryd serves resolution queries to editor tooling over gRPC.
//
// The service schema ships as an embedded .proto parsed at startup with
// protoparse; the grpc.ServiceDesc is assembled dynamically and messages
// are protoreflect dynamic messages, so no generated code is involved.
package queryd

import (
	"context"
	"fmt"
	"net"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"

	"github.com/lumenlang/lumen/internal/ast"
	"github.com/lumenlang/lumen/internal/diagnostics"
	"github.com/lumenlang/lumen/internal/fixture"
	"github.com/lumenlang/lumen/internal/resolve"
	"github.com/lumenlang/lumen/internal/scope"
	"github.com/lumenlang/lumen/internal/typedesc"
)

const protoFile = "lumen/resolver.proto"

const protoSource = `syntax = "proto3";

package lumen.resolve.v1;

service Resolver {
  rpc Resolve(ResolveRequest) returns (ResolveReply);
  rpc ResolveFunction(ResolveFunctionRequest) returns (ResolveReply);
  rpc Diagnostics(DiagnosticsRequest) returns (DiagnosticsReply);
}

message ResolveRequest {
  string unit = 1;
  string receiver = 2;
  string method = 3;
}

message ResolveFunctionRequest {
  string unit = 1;
  string path = 2;
}

message ResolveReply {
  string outcome = 1;
  string tier = 2;
  string bound_to = 3;
  repeated string candidates = 4;
}

message DiagnosticsRequest {}

message Diagnostic {
  string code = 1;
  string file = 2;
  int32 line = 3;
  int32 column = 4;
  string message = 5;
  string severity = 6;
}

message DiagnosticsReply {
  repeated Diagnostic diagnostics = 1;
}
`

// State is the immutable post-collection view the daemon answers from.
type State struct {
	Engine      *resolve.Engine
	Registry    *typedesc.Registry
	Scopes      map[ast.UnitID]*scope.Scope
	Diagnostics []*diagnostics.DiagnosticError
}

// Server hosts the Resolver service.
type Server struct {
	state *State
	sd    *desc.ServiceDescriptor
	grpc  *grpc.Server
}

func NewServer(state *State) (*Server, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{protoFile: protoSource}),
	}
	fds, err := parser.ParseFiles(protoFile)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded proto: %w", err)
	}
	sd := fds[0].FindService("lumen.resolve.v1.Resolver")
	if sd == nil {
		return nil, fmt.Errorf("embedded proto is missing the Resolver service")
	}
	return &Server{state: state, sd: sd}, nil
}

// Serve registers the dynamic service and blocks on the listener.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(lis)
}

// ServeListener is Serve over an existing listener, for tests.
func (s *Server) ServeListener(lis net.Listener) error {
	s.grpc = grpc.NewServer()
	s.grpc.RegisterService(s.serviceDesc(), s)
	return s.grpc.Serve(lis)
}

// Stop gracefully stops a running server.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

func (s *Server) serviceDesc() *grpc.ServiceDesc {
	gd := &grpc.ServiceDesc{
		ServiceName: s.sd.GetFullyQualifiedName(),
		HandlerType: (*interface{})(nil),
		Metadata:    s.sd.GetFile().GetName(),
	}
	for _, method := range s.sd.GetMethods() {
		md := method
		handle := s.handlerFor(md.GetName())
		gd.Methods = append(gd.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := dynamic.NewMessage(md.GetInputType())
				if err := dec(in); err != nil {
					return nil, err
				}
				out := dynamic.NewMessage(md.GetOutputType())
				if err := handle(in, out); err != nil {
					return nil, err
				}
				return out, nil
			},
		})
	}
	return gd
}

type handlerFunc func(in, out *dynamic.Message) error

func (s *Server) handlerFor(method string) handlerFunc {
	switch method {
	case "Resolve":
		return s.handleResolve
	case "ResolveFunction":
		return s.handleResolveFunction
	case "Diagnostics":
		return s.handleDiagnostics
	default:
		return func(in, out *dynamic.Message) error {
			return fmt.Errorf("unhandled method %s", method)
		}
	}
}

func (s *Server) handleResolve(in, out *dynamic.Message) error {
	unit := stringField(in, "unit")
	receiverText := stringField(in, "receiver")
	method := stringField(in, "method")

	sc := s.state.Scopes[ast.UnitID(unit)]
	if sc == nil {
		return fmt.Errorf("unknown compilation unit %q", unit)
	}
	expr, err := fixture.ParseTypeExpr(receiverText, nil)
	if err != nil {
		return fmt.Errorf("receiver type: %w", err)
	}
	receiver := s.state.Registry.Intern(expr, nil)
	fillReply(out, s.state.Engine.Resolve(receiver, method, sc))
	return nil
}

func (s *Server) handleResolveFunction(in, out *dynamic.Message) error {
	unit := stringField(in, "unit")
	path := stringField(in, "path")

	sc := s.state.Scopes[ast.UnitID(unit)]
	if sc == nil {
		return fmt.Errorf("unknown compilation unit %q", unit)
	}
	fillReply(out, s.state.Engine.ResolveAsFunction(path, sc))
	return nil
}

func (s *Server) handleDiagnostics(in, out *dynamic.Message) error {
	md := out.GetMessageDescriptor()
	entryField := md.FindFieldByName("diagnostics")
	for _, d := range s.state.Diagnostics {
		entry := dynamic.NewMessage(entryField.GetMessageType())
		entry.SetFieldByName("code", string(d.Code))
		entry.SetFieldByName("file", d.File)
		entry.SetFieldByName("line", int32(d.Token.Line))
		entry.SetFieldByName("column", int32(d.Token.Column))
		entry.SetFieldByName("message", d.Message)
		severity := "error"
		if d.Severity == diagnostics.SeverityWarning {
			severity = "warning"
		}
		entry.SetFieldByName("severity", severity)
		out.AddRepeatedFieldByName("diagnostics", entry)
	}
	return nil
}

func fillReply(out *dynamic.Message, r resolve.Resolution) {
	switch r.Kind {
	case resolve.Resolved:
		out.SetFieldByName("outcome", "resolved")
		out.SetFieldByName("bound_to", r.Method.Origin())
	case resolve.Ambiguous:
		out.SetFieldByName("outcome", "ambiguous")
		for _, c := range r.Candidates {
			out.AddRepeatedFieldByName("candidates", c.Origin())
		}
	default:
		out.SetFieldByName("outcome", "not_found")
	}
	out.SetFieldByName("tier", r.Tier.String())
}

func stringField(m *dynamic.Message, name string) string {
	v := m.GetFieldByName(name)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
