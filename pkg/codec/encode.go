package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Encode writes the tree in the given format.
// JSON output uses two-space indentation, matching the editor's "tree.json" export.
func Encode(w io.Writer, root *domain.Node, format Format) error {
	if root == nil {
		return fmt.Errorf("cannot encode nil tree")
	}
	doc := document(root)

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to flush yaml: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	return nil
}

// Marshal returns the JSON export of the tree.
func Marshal(root *domain.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, root, FormatJSON); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal is the JSON counterpart of Marshal.
func Unmarshal(data []byte) (*domain.Node, error) {
	return DecodeBytes(data, FormatJSON)
}

func document(n *domain.Node) any {
	switch n.Kind {
	case domain.KindInternalLink:
		return dto.InternalLinkDocument{
			ID:           n.ID,
			Title:        n.Title,
			Type:         domain.InternalLinkType,
			TargetNodeID: n.TargetID,
		}
	case domain.KindTerminal:
		return dto.TerminalDocument{
			ID:    n.ID,
			Title: n.Title,
			Image: n.Image,
			Link:  n.Link,
		}
	default:
		options := make([]any, 0, len(n.Options))
		for _, child := range n.Options {
			options = append(options, document(child))
		}
		return dto.DecisionDocument{
			ID:       n.ID,
			Title:    n.Title,
			Image:    n.Image,
			Question: n.Question,
			Options:  options,
		}
	}
}
