package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
)

// Stdio is the path that stands for standard input or output.
const Stdio = "-"

// ReadTree imports the document at path, or from in when path is Stdio.
// The format follows the file extension; standard input is read as JSON unless
// format is given.
func ReadTree(ws *arbor.Workspace, path string, format codec.Format, in io.Reader) (*domain.Node, error) {
	if format == "" {
		format = codec.FormatFromPath(path)
	}
	if path == Stdio {
		return ws.Import(in, format)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	root, err := ws.Import(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return root, nil
}

// WriteTree exports root to path, or to out when path is empty or Stdio.
func WriteTree(ws *arbor.Workspace, path string, format codec.Format, root *domain.Node, out io.Writer) error {
	if format == "" {
		format = codec.FormatFromPath(path)
	}
	if path == "" || path == Stdio {
		return ws.Export(out, root, format)
	}

	var buf bytes.Buffer
	if err := ws.Export(&buf, root, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
