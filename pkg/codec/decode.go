package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultMaxDepth bounds the nesting of imported documents.
const DefaultMaxDepth = 512

// textKeys are the scalar fields handed to mapstructure.
var textKeys = []string{"id", "title", "image", "type", "question_for_options", "link", "target_node_id"}

// Option configures decoding.
type Option func(*decoder)

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 disable the limit.
func WithMaxDepth(depth int) Option {
	return func(d *decoder) {
		d.maxDepth = depth
	}
}

type decoder struct {
	maxDepth int
}

// Decode reads a tree document in the given format.
//
// The node kind is decided here, once: a "type" of "internal_link" makes an internal
// link, a present (non-null) "options" field makes a decision, and anything else is a
// terminal. Text fields of the wrong type decode as empty strings; ids that are not
// positive whole numbers decode as 0 (unassigned).
func Decode(r io.Reader, format Format, opts ...Option) (*domain.Node, error) {
	d := &decoder{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}

	raw, err := d.readRaw(r, format)
	if err != nil {
		return nil, err
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root must be an object, got %T", raw)
	}
	return d.node(m, 0)
}

// DecodeBytes is a convenience wrapper around Decode.
func DecodeBytes(data []byte, format Format, opts ...Option) (*domain.Node, error) {
	return Decode(bytes.NewReader(data), format, opts...)
}

func (d *decoder) readRaw(r io.Reader, format Format) (any, error) {
	var raw any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
	case FormatYAML:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read yaml: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	return raw, nil
}

func (d *decoder) node(m map[string]any, depth int) (*domain.Node, error) {
	if d.maxDepth > 0 && depth >= d.maxDepth {
		return nil, fmt.Errorf("%w (%d)", domain.ErrTooDeep, d.maxDepth)
	}

	doc, err := decodeDocument(m)
	if err != nil {
		return nil, err
	}
	id := parseID(doc.ID)

	if doc.Type == domain.InternalLinkType {
		return domain.NewInternalLink(id, doc.Title, ParseTarget(doc.TargetNodeID)), nil
	}

	if rawOptions, ok := m["options"]; ok && rawOptions != nil {
		n := domain.NewDecision(id, doc.Title, doc.Question)
		n.Image = doc.Image
		items, _ := rawOptions.([]any)
		for _, item := range items {
			child, ok := item.(map[string]any)
			if !ok {
				continue
			}
			c, err := d.node(child, depth+1)
			if err != nil {
				return nil, err
			}
			n.Options = append(n.Options, c)
		}
		return n, nil
	}

	n := domain.NewTerminal(id, doc.Title, doc.Link)
	n.Image = doc.Image
	return n, nil
}

// decodeDocument keeps only scalar values of the known keys so that weak decoding
// cannot fail on shape mismatches.
func decodeDocument(m map[string]any) (dto.NodeDocument, error) {
	scalars := make(map[string]any, len(textKeys))
	for _, k := range textKeys {
		switch v := m[k].(type) {
		case string, bool, json.Number, int, int64, uint64, float64:
			scalars[k] = v
		}
	}

	var doc dto.NodeDocument
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &doc,
	})
	if err != nil {
		return doc, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(scalars); err != nil {
		return doc, fmt.Errorf("failed to decode node: %w", err)
	}
	return doc, nil
}

func parseID(v any) int {
	var f float64
	switch id := v.(type) {
	case json.Number:
		if i, err := id.Int64(); err == nil {
			return positive(i)
		}
		parsed, err := id.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case int:
		return positive(int64(id))
	case int64:
		return positive(id)
	case uint64:
		if id > math.MaxInt32 {
			return 0
		}
		return int(id)
	case float64:
		f = id
	default:
		return 0
	}
	if f != math.Trunc(f) || f > math.MaxInt32 {
		return 0
	}
	return positive(int64(f))
}

func positive(i int64) int {
	if i <= 0 || i > math.MaxInt32 {
		return 0
	}
	return int(i)
}

// ParseTarget normalizes a target_node_id value (string or number) to its
// textual form. Unknown shapes yield "".
func ParseTarget(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
