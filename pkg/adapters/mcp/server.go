package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/editor"
	"github.com/aretw0/arbor/pkg/identity"
)

// resourcePrefix is the URI scheme under which stored trees are exposed.
const resourcePrefix = "arbor://trees/"

// NodesResponse lists the nodes internal links can target.
type NodesResponse struct {
	Key   string         `json:"key" jsonschema_description:"Storage key of the tree"`
	Nodes []identity.Ref `json:"nodes" jsonschema_description:"Nodes in depth-first order, root first"`
}

// TreesResponse lists the stored trees.
type TreesResponse struct {
	Keys []string `json:"keys" jsonschema_description:"Storage keys in order"`
}

// AddNodeResponse identifies a node created by add_node.
type AddNodeResponse struct {
	Path string `json:"path" jsonschema_description:"Editor path of the new node"`
	ID   int    `json:"id" jsonschema_description:"Id assigned to the new node"`
}

// IssuesResponse reports the structural problems of a tree.
type IssuesResponse struct {
	Key    string            `json:"key" jsonschema_description:"Storage key of the tree"`
	Valid  bool              `json:"valid" jsonschema_description:"True when no issue was found"`
	Issues []validator.Issue `json:"issues" jsonschema_description:"Problems in depth-first order"`
}

// Workspace defines what the MCP server needs from the arbor core.
type Workspace interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, key string) (*domain.Node, error)
	Nodes(ctx context.Context, key string) ([]identity.Ref, error)
	Edit(ctx context.Context, key string, fn func(*editor.Editor) error) (*domain.Node, error)
	Diagram(ctx context.Context, key string, format arbor.Format, opts arbor.DiagramOptions) (arbor.Diagram, error)
}

var _ Workspace = (*arbor.Workspace)(nil)

// Server wraps a Workspace and exposes it as an MCP Server.
type Server struct {
	ws        Workspace
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. A nil logger discards diagnostics.
func NewServer(ws Workspace, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		ws:        ws,
		logger:    logger,
		mcpServer: server.NewMCPServer("arbor-mcp", arbor.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	keyParam := mcp.WithString("key", mcp.Description("Storage key of the tree (defaults to "+domain.DefaultStorageKey+")"))

	s.mcpServer.AddTool(mcp.NewTool("compile_diagram",
		mcp.WithDescription("Compile a stored decision tree into Mermaid flowchart or Graphviz DOT text."),
		keyParam,
		mcp.WithString("format", mcp.Description("mermaid (default) or graphviz")),
		mcp.WithString("direction", mcp.Description("Mermaid direction: TD, TB, BT, LR or RL")),
		mcp.WithString("highlight", mcp.Description("Comma separated node ids to highlight (Mermaid only)")),
		mcp.WithOutputSchema[arbor.Diagram](),
	), mcp.NewStructuredToolHandler(s.handleCompileDiagram))

	s.mcpServer.AddTool(mcp.NewTool("list_nodes",
		mcp.WithDescription("List the nodes of a tree that internal links can point to."),
		keyParam,
		mcp.WithOutputSchema[NodesResponse](),
	), mcp.NewStructuredToolHandler(s.handleListNodes))

	s.mcpServer.AddTool(mcp.NewTool("list_trees",
		mcp.WithDescription("List the keys of the stored trees."),
		mcp.WithOutputSchema[TreesResponse](),
	), mcp.NewStructuredToolHandler(s.handleListTrees))

	s.mcpServer.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Append a decision, terminal or internal link under the decision at path."),
		keyParam,
		mcp.WithString("path", mcp.Description("Parent path: root or dot separated child indexes")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("decision, terminal or internal_link")),
		mcp.WithString("title", mcp.Description("Title of the new node")),
		mcp.WithString("question", mcp.Description("Question asked by a new decision")),
		mcp.WithString("link", mcp.Description("Outbound link of a new terminal")),
		mcp.WithString("target_node_id", mcp.Description("Target id of a new internal link")),
		mcp.WithOutputSchema[AddNodeResponse](),
	), mcp.NewStructuredToolHandler(s.handleAddNode))

	s.mcpServer.AddTool(mcp.NewTool("validate_tree",
		mcp.WithDescription("Report duplicate or missing ids and internal links whose target does not exist."),
		keyParam,
		mcp.WithOutputSchema[IssuesResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidateTree))

	s.mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the JSON document of a stored tree."),
		keyParam,
	), s.handleGetTree)
}

func (s *Server) handleCompileDiagram(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (arbor.Diagram, error) {
	key, _ := args["key"].(string)
	formatArg, _ := args["format"].(string)
	direction, _ := args["direction"].(string)
	highlightArg, _ := args["highlight"].(string)

	format, err := graph.ParseFormat(formatArg)
	if err != nil {
		return arbor.Diagram{}, err
	}
	highlight, err := parseIDs(highlightArg)
	if err != nil {
		return arbor.Diagram{}, err
	}

	res, err := s.ws.Diagram(ctx, key, format, arbor.DiagramOptions{Direction: direction, Highlight: highlight})
	if err != nil {
		return arbor.Diagram{}, fmt.Errorf("compile failed: %w", err)
	}
	if len(res.Warnings) > 0 {
		s.logger.Warn("MCP compile_diagram: unresolved internal links", "key", key, "count", len(res.Warnings))
	}
	return res, nil
}

func (s *Server) handleListNodes(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (NodesResponse, error) {
	key, _ := args["key"].(string)
	refs, err := s.ws.Nodes(ctx, key)
	if err != nil {
		return NodesResponse{}, fmt.Errorf("list nodes failed: %w", err)
	}
	if key == "" {
		key = domain.DefaultStorageKey
	}
	return NodesResponse{Key: key, Nodes: refs}, nil
}

func (s *Server) handleValidateTree(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (IssuesResponse, error) {
	key, _ := args["key"].(string)
	if key == "" {
		key = domain.DefaultStorageKey
	}
	root, err := s.ws.Load(ctx, key)
	if err != nil {
		return IssuesResponse{}, fmt.Errorf("validate tree failed: %w", err)
	}
	issues := validator.Inspect(root)
	if issues == nil {
		issues = []validator.Issue{}
	}
	return IssuesResponse{Key: key, Valid: len(issues) == 0, Issues: issues}, nil
}

func (s *Server) handleListTrees(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TreesResponse, error) {
	keys, err := s.ws.List(ctx)
	if err != nil {
		return TreesResponse{}, fmt.Errorf("list trees failed: %w", err)
	}
	return TreesResponse{Keys: keys}, nil
}

func (s *Server) handleAddNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (AddNodeResponse, error) {
	key, _ := args["key"].(string)
	path, _ := args["path"].(string)
	kind, _ := args["kind"].(string)
	title, _ := args["title"].(string)
	question, _ := args["question"].(string)
	link, _ := args["link"].(string)
	target, _ := args["target_node_id"].(string)

	var resp AddNodeResponse
	_, err := s.ws.Edit(ctx, key, func(ed *editor.Editor) error {
		var (
			added editor.Path
			err   error
		)
		switch kind {
		case "decision":
			added, err = ed.AddDecision(path, title, question)
		case "terminal":
			added, err = ed.AddTerminal(path, title, link)
		case domain.InternalLinkType:
			id, convErr := strconv.Atoi(strings.TrimSpace(target))
			if convErr != nil {
				return fmt.Errorf("invalid target_node_id %q: %w", target, convErr)
			}
			added, err = ed.AddInternalLink(path, title, id)
		default:
			return fmt.Errorf("%w: node kind %q", domain.ErrUnsupportedFormat, kind)
		}
		if err != nil {
			return err
		}
		n, err := ed.Find(added.String())
		if err != nil {
			return err
		}
		resp = AddNodeResponse{Path: added.String(), ID: n.ID}
		return nil
	})
	if err != nil {
		return AddNodeResponse{}, fmt.Errorf("add node failed: %w", err)
	}
	return resp, nil
}

func (s *Server) handleGetTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := request.GetString("key", "")
	data, err := s.document(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get tree failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) document(ctx context.Context, key string) ([]byte, error) {
	root, err := s.ws.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(root)
}

func (s *Server) registerResources() {
	// EXPOSE: arbor://trees/{key}
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(resourcePrefix+"{key}", "Stored decision tree",
		mcp.WithTemplateDescription("JSON document of the tree stored under key"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readTree)
}

func (s *Server) readTree(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	key := strings.TrimPrefix(uri, resourcePrefix)
	if key == uri || key == "" {
		return nil, fmt.Errorf("%w: resource %q", domain.ErrInvalidKey, uri)
	}

	data, err := s.document(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func parseIDs(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid highlight id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
