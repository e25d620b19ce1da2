package server

import (
	"context"
	"fmt"

	"github.com/harun/mathroute/pkg/pipeline"
	"github.com/harun/mathroute/pkg/registry"
)

// Built-in method names
const (
	MethodQueryHandle   = "query.handle"
	MethodRegistryList  = "registry.list"
	MethodServerClients = "server.clients"
)

// QueryResult is the result of query.handle. Status and Message mirror
// Outcome.Status and Outcome.Message so thin clients need not interpret the
// outcome themselves.
type QueryResult struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Outcome pipeline.Outcome `json:"outcome"`
}

// RegistryListing is the result of registry.list
type RegistryListing struct {
	Tools      []string             `json:"tools"`
	Operations []registry.Operation `json:"operations"`
}

func (s *Server) registerBuiltinMethods() {
	_ = s.router.RegisterMethod(MethodQueryHandle, s.handleQuery)
	_ = s.router.RegisterMethod(MethodRegistryList, s.handleRegistryList)
	_ = s.router.RegisterMethod(MethodServerClients, s.handleServerClients)
}

func invalidParams(format string, args ...interface{}) *RPCError {
	return &RPCError{Code: InvalidParams, Message: fmt.Sprintf(format, args...)}
}

// handleQuery runs one query through the pipeline. Pipeline failures are
// part of the outcome, not RPC errors.
func (s *Server) handleQuery(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	raw, ok := params["query"]
	if !ok {
		return nil, invalidParams("query parameter is required")
	}
	query, ok := raw.(string)
	if !ok {
		return nil, invalidParams("query parameter must be a string")
	}

	outcome := s.handler.HandleQuery(ctx, query)
	return QueryResult{
		Status:  outcome.Status(),
		Message: outcome.Message(),
		Outcome: outcome,
	}, nil
}

// handleRegistryList lists registered operations, optionally for one tool.
func (s *Server) handleRegistryList(_ context.Context, params map[string]interface{}) (interface{}, error) {
	raw, ok := params["tool"]
	if !ok || raw == nil {
		return RegistryListing{
			Tools:      s.registry.Tools(),
			Operations: s.registry.Operations(),
		}, nil
	}

	tool, ok := raw.(string)
	if !ok {
		return nil, invalidParams("tool parameter must be a string")
	}
	tool = registry.Normalize(tool)
	if !s.registry.HasTool(tool) {
		return nil, invalidParams("unknown tool: %s", tool)
	}
	return RegistryListing{
		Tools:      []string{tool},
		Operations: s.registry.OperationsFor(tool),
	}, nil
}

func (s *Server) handleServerClients(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"clients": s.clients.Info(),
		"methods": s.router.Methods(),
	}, nil
}
