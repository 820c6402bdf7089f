package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/render"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/editor"
)

// maxBody bounds uploaded tree documents.
const maxBody = 4 << 20

// rejectBody answers a request whose body could not be read or decoded.
// Bodies cut off at maxBody get 413 instead of a misleading parse error.
func (s *Server) rejectBody(w http.ResponseWriter, op string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
		s.logger.Warn(op+": Request body too large", "limit", tooLarge.Limit)
		return
	}
	http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
	s.logger.Warn(op+": Invalid request body", "err", err)
}

func newTreeKey() string {
	return uuid.NewString()
}

// ListTrees handles the GET /trees request.
func (s *Server) ListTrees(w http.ResponseWriter, r *http.Request) {
	keys, err := s.Workspace.List(r.Context())
	if err != nil {
		s.fail(w, "List", err)
		return
	}
	s.writeJSON(w, http.StatusOK, keys)
}

// CreateTree handles the POST /trees request.
func (s *Server) CreateTree(w http.ResponseWriter, r *http.Request) {
	key := s.newKey()
	if _, _, err := s.Workspace.Create(r.Context(), key); err != nil {
		s.fail(w, "Create", err)
		return
	}
	w.Header().Set("Location", "/trees/"+key)
	s.writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// GetTree handles the GET /trees/{key} request.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	format, err := codec.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, "GetTree", err)
		return
	}
	root, err := s.Workspace.Load(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.fail(w, "GetTree", err)
		return
	}
	s.writeTree(w, http.StatusOK, root, format)
}

// PutTree handles the PUT /trees/{key} request. The body is a JSON or YAML
// document, chosen by Content-Type.
func (s *Server) PutTree(w http.ResponseWriter, r *http.Request) {
	format := codec.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = codec.FormatYAML
	}

	root, err := s.Workspace.Import(http.MaxBytesReader(w, r.Body, maxBody), format)
	if errors.Is(err, domain.ErrTooDeep) {
		s.fail(w, "PutTree", err)
		return
	}
	if err != nil {
		s.rejectBody(w, "PutTree", err)
		return
	}

	saved, err := s.Workspace.Save(r.Context(), chi.URLParam(r, "key"), root)
	if err != nil {
		s.fail(w, "PutTree", err)
		return
	}
	s.writeTree(w, http.StatusOK, saved, codec.FormatJSON)
}

// DeleteTree handles the DELETE /trees/{key} request.
func (s *Server) DeleteTree(w http.ResponseWriter, r *http.Request) {
	if err := s.Workspace.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		s.fail(w, "DeleteTree", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDiagram handles the GET /trees/{key}/diagram request. The diagram source is
// returned as text unless the client accepts JSON.
func (s *Server) GetDiagram(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := graph.ParseFormat(q.Get("format"))
	if err != nil {
		s.fail(w, "Diagram", err)
		return
	}
	highlight, err := parseIDs(q.Get("highlight"))
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid highlight: %v", err), http.StatusBadRequest)
		s.logger.Warn("Diagram: Invalid highlight", "err", err)
		return
	}

	res, err := s.Workspace.Diagram(r.Context(), chi.URLParam(r, "key"), format, arbor.DiagramOptions{
		Direction: q.Get("direction"),
		Highlight: highlight,
	})
	if err != nil {
		s.fail(w, "Diagram", err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		s.writeJSON(w, http.StatusOK, res)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Unresolved-Links", strconv.Itoa(len(res.Warnings)))
	_, _ = io.WriteString(w, res.Text)
}

// GetDiagramSVG handles the GET /trees/{key}/diagram.svg request.
func (s *Server) GetDiagramSVG(w http.ResponseWriter, r *http.Request) {
	res, err := s.Workspace.Diagram(r.Context(), chi.URLParam(r, "key"), arbor.FormatGraphviz, arbor.DiagramOptions{})
	if err != nil {
		s.fail(w, "DiagramSVG", err)
		return
	}
	svg, err := render.SVG(r.Context(), res.Text)
	if err != nil {
		s.fail(w, "DiagramSVG", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

// ListNodes handles the GET /trees/{key}/nodes request.
func (s *Server) ListNodes(w http.ResponseWriter, r *http.Request) {
	refs, err := s.Workspace.Nodes(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.fail(w, "ListNodes", err)
		return
	}
	s.writeJSON(w, http.StatusOK, refs)
}

// ListIssues reports structural problems of the tree. An empty list means it is valid.
func (s *Server) ListIssues(w http.ResponseWriter, r *http.Request) {
	root, err := s.Workspace.Load(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.fail(w, "ListIssues", err)
		return
	}
	issues := validator.Inspect(root)
	if issues == nil {
		issues = []validator.Issue{}
	}
	s.writeJSON(w, http.StatusOK, issues)
}

// NewChild is the body of POST /trees/{key}/nodes/{path}/children.
type NewChild struct {
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Question string `json:"question_for_options"`
	Link     string `json:"link"`
	// TargetID accepts a number or a numeric string.
	TargetID any `json:"target_node_id"`
}

func (c NewChild) target() (int, error) {
	raw := codec.ParseTarget(c.TargetID)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid target_node_id %v", c.TargetID)
	}
	return id, nil
}

// AddChild handles the POST /trees/{key}/nodes/{path}/children request.
func (s *Server) AddChild(w http.ResponseWriter, r *http.Request) {
	var body NewChild
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&body); err != nil {
		s.rejectBody(w, "AddChild", err)
		return
	}
	var target int
	if body.Kind == domain.InternalLinkType {
		var err error
		if target, err = body.target(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			s.logger.Warn("AddChild: Invalid target", "err", err)
			return
		}
	}

	parent := chi.URLParam(r, "path")
	var (
		added editor.Path
		id    int
	)
	_, err := s.Workspace.Edit(r.Context(), chi.URLParam(r, "key"), func(ed *editor.Editor) error {
		var err error
		switch body.Kind {
		case "decision":
			added, err = ed.AddDecision(parent, body.Title, body.Question)
		case "terminal":
			added, err = ed.AddTerminal(parent, body.Title, body.Link)
		case domain.InternalLinkType:
			added, err = ed.AddInternalLink(parent, body.Title, target)
		default:
			return fmt.Errorf("%w: node kind %q", domain.ErrUnsupportedFormat, body.Kind)
		}
		if err != nil {
			return err
		}
		n, err := ed.Find(added.String())
		if err != nil {
			return err
		}
		id = n.ID
		return nil
	})
	if err != nil {
		s.fail(w, "AddChild", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"path": added.String(), "id": id})
}

// UpdateNode handles the PATCH /trees/{key}/nodes/{path} request.
func (s *Server) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var patch editor.Patch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&patch); err != nil {
		s.rejectBody(w, "UpdateNode", err)
		return
	}

	path := chi.URLParam(r, "path")
	saved, err := s.Workspace.Edit(r.Context(), chi.URLParam(r, "key"), func(ed *editor.Editor) error {
		return ed.Update(path, patch)
	})
	if err != nil {
		s.fail(w, "UpdateNode", err)
		return
	}
	s.writeTree(w, http.StatusOK, saved, codec.FormatJSON)
}

// RemoveNode handles the DELETE /trees/{key}/nodes/{path} request.
func (s *Server) RemoveNode(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	saved, err := s.Workspace.Edit(r.Context(), chi.URLParam(r, "key"), func(ed *editor.Editor) error {
		_, err := ed.Remove(path)
		return err
	})
	if err != nil {
		s.fail(w, "RemoveNode", err)
		return
	}
	s.writeTree(w, http.StatusOK, saved, codec.FormatJSON)
}

func (s *Server) writeTree(w http.ResponseWriter, status int, root *domain.Node, format codec.Format) {
	var buf bytes.Buffer
	if err := codec.Encode(&buf, root, format); err != nil {
		s.fail(w, "Encode", err)
		return
	}
	if format == codec.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func parseIDs(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("node id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
