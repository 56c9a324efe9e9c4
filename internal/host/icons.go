package host

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/model"
)

// maxIconSize bounds a single icon file.
const maxIconSize = 1 << 20

// DirIconSource resolves icon references as paths relative to a directory.
// References that escape the directory are not resolved.
type DirIconSource struct {
	Root string
	Log  *slog.Logger
}

var _ engine.IconSource = DirIconSource{}

// Resolve reads the icon file. Any failure reports false: the template is
// shown without an icon.
func (d DirIconSource) Resolve(ctx context.Context, ref string) (model.Icon, bool) {
	logger := d.Log
	if logger == nil {
		logger = slog.Default()
	}
	if d.Root == "" || ref == "" || !filepath.IsLocal(ref) {
		return model.Icon{}, false
	}
	if err := ctx.Err(); err != nil {
		return model.Icon{}, false
	}

	path := filepath.Join(d.Root, ref)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() > maxIconSize {
		logger.Debug("icon not usable", "event", "icon", "ref", ref, "error", err)
		return model.Icon{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("icon read failed", "event", "icon", "ref", ref, "error", err)
		return model.Icon{}, false
	}
	if ctx.Err() != nil {
		return model.Icon{}, false
	}

	ct := mime.TypeByExtension(filepath.Ext(ref))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return model.Icon{Ref: ref, ContentType: ct, Data: data}, true
}
