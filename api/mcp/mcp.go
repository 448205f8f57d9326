// Package mcp exposes the glassbox tokenizer, attribution scorer and token
// counter as Model Context Protocol tools over stateless streamable HTTP.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/glassbox/pkg/llm"
	"github.com/papercomputeco/glassbox/pkg/utils"
)

type Config struct {
	// Noop registers no tools.
	Noop bool

	// Client backs the count_tokens tool, which is omitted when nil.
	Client llm.Client

	// ContextWindow is the window count_tokens reports usage against.
	ContextWindow int

	Logger *zap.Logger
}

type Server struct {
	config  Config
	handler *mcp.StreamableHTTPHandler
	tools   []string
}

func NewServer(c Config) (*Server, error) {
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{config: c}

	server := mcp.NewServer(
		&mcp.Implementation{Name: "glassbox", Version: utils.Version},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		mcp.AddTool(server, &mcp.Tool{Name: tokenizeToolName, Description: tokenizeDescription}, s.handleTokenize)
		mcp.AddTool(server, &mcp.Tool{Name: attributeToolName, Description: attributeDescription}, s.handleAttribute)
		s.tools = append(s.tools, tokenizeToolName, attributeToolName)

		if c.Client != nil {
			mcp.AddTool(server, &mcp.Tool{Name: countTokensToolName, Description: countTokensDescription}, s.handleCountTokens)
			s.tools = append(s.tools, countTokensToolName)
		}
	}

	// Every request is answered by the same server; no session state is kept.
	s.handler = mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return server },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)

	c.Logger.Debug("MCP server ready", zap.Strings("tools", s.tools))
	return s, nil
}

// Tools lists the registered tool names in registration order.
func (s *Server) Tools() []string {
	return s.tools
}

func (s *Server) Handler() http.Handler {
	return s.handler
}
