package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/file"
)

// DiagramOptions configures RunDiagram.
type DiagramOptions struct {
	// Source is a document path, or Stdio. Empty compiles the stored tree under Key.
	Source  string
	Key     string
	Format  arbor.Format
	Diagram arbor.DiagramOptions
	// Output is the destination file. Empty writes to stdout.
	Output string
	// Watch recompiles on every change of the source until ctx is done.
	Watch bool
}

// RunDiagram compiles a tree once, or keeps recompiling it in watch mode.
// Unresolved internal links are reported on stderr.
func RunDiagram(ctx context.Context, ws *arbor.Workspace, opts DiagramOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	compile := func() error {
		res, err := diagram(ctx, ws, opts, stdin)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(stderr, "warning: node %d: %s (target %q)\n", w.NodeID, w.Message, w.TargetID)
		}
		if opts.Output == "" {
			_, err = io.WriteString(stdout, res.Text)
			return err
		}
		if err := os.WriteFile(opts.Output, []byte(res.Text), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.Output, err)
		}
		return nil
	}

	if opts.Watch && opts.Source == Stdio {
		return fmt.Errorf("cannot watch standard input")
	}
	if err := compile(); err != nil {
		if !opts.Watch {
			return err
		}
		ws.Logger().Error("Compilation failed, waiting for changes", "err", err)
	}
	if !opts.Watch {
		return nil
	}

	changes, err := watchSource(ctx, ws, opts)
	if err != nil {
		return err
	}

	target := opts.Source
	if target == "" {
		target = opts.Key
	}
	PrintSystemMessage(stderr, "Watching '%s' for changes...", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			ws.Logger().Info("Change detected, recompiling", "source", target)
			if err := compile(); err != nil {
				ws.Logger().Error("Compilation failed, waiting for changes", "err", err)
				PrintSystemMessage(stderr, "Compilation failed: %v", err)
				continue
			}
			if opts.Output != "" {
				PrintSystemMessage(stderr, "Wrote %s.", opts.Output)
			}
		}
	}
}

func diagram(ctx context.Context, ws *arbor.Workspace, opts DiagramOptions, stdin io.Reader) (arbor.Diagram, error) {
	if opts.Source == "" {
		return ws.Diagram(ctx, opts.Key, opts.Format, opts.Diagram)
	}
	root, err := ReadTree(ws, opts.Source, "", stdin)
	if err != nil {
		return arbor.Diagram{}, err
	}
	return ws.Compile(ctx, root, opts.Format, opts.Diagram)
}

// watchSource reports changes of the document file, or of the stored tree.
func watchSource(ctx context.Context, ws *arbor.Workspace, opts DiagramOptions) (<-chan struct{}, error) {
	out := make(chan struct{}, 1)
	notify := func() {
		select {
		case out <- struct{}{}:
		default:
		}
	}

	if opts.Source != "" {
		events, err := file.WatchFile(ctx, opts.Source, ws.Logger())
		if err != nil {
			return nil, err
		}
		go func() {
			defer close(out)
			for range events {
				notify()
			}
		}()
		return out, nil
	}

	if err := ws.Watch(ctx); err != nil {
		return nil, err
	}
	events, cancel := ws.Subscribe(opts.Key)
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				notify()
			}
		}
	}()
	return out, nil
}
