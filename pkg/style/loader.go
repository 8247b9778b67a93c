package style

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentLoads bounds the number of icons decoded at once.
const maxConcurrentLoads = 4

// IconSpec names the icon file for one topic type.
type IconSpec struct {
	TypeURI string
	Path    string
}

// LoadIcons decodes the given icon files from fsys into table. Every spec is
// registered even when decoding fails: the icon then carries its source and
// the generic size but no image, and drawing reports it as not loaded.
// The tracker, if non-nil, is settled for each path. The returned error joins
// all per-icon failures; it is nil when every icon decoded.
func LoadIcons(ctx context.Context, fsys fs.FS, specs []IconSpec, table *Table, tracker *Tracker, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)

	for _, spec := range specs {
		g.Go(func() error {
			if tracker != nil {
				defer tracker.Done(spec.Path)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			icon, err := decodeIcon(fsys, spec.Path)
			if err != nil {
				logger.Warn("icon load failed", "type", spec.TypeURI, "source", spec.Path, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				icon = &Icon{Source: spec.Path, Width: DefaultIconSize, Height: DefaultIconSize}
			} else {
				logger.Debug("icon loaded", "type", spec.TypeURI, "source", spec.Path,
					"width", icon.Width, "height", icon.Height)
			}
			table.SetIcon(spec.TypeURI, icon)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func decodeIcon(fsys fs.FS, path string) (*Icon, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	b := img.Bounds()
	return &Icon{Source: path, Width: b.Dx(), Height: b.Dy(), Image: img}, nil
}

// IconSources returns the paths of specs, for seeding a Tracker.
func IconSources(specs []IconSpec) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Path)
	}
	return out
}
