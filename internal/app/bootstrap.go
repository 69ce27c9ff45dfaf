package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/deusflow/newsletter/internal/config"
)

// Bootstrap creates every directory listed in the init configuration. A
// freshly created assets directory is empty, so the template the design
// stage needs is missing; that is logged as a warning.
func Bootstrap(base string, cfg *config.Init, log *slog.Logger) error {
	for _, p := range cfg.Paths {
		full := config.Resolve(base, p)
		info, err := os.Stat(full)
		switch {
		case err == nil && info.IsDir():
			log.Info("directory already exists", "path", full)
			continue
		case err == nil:
			return fmt.Errorf("%s exists and is not a directory", full)
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("stat %s: %w", full, err)
		}

		if err := os.MkdirAll(full, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", full, err)
		}
		log.Info("directory created", "path", full)
		if strings.Contains(p, "assets") {
			log.Warn("assets directory was just created and is empty", "path", full)
		}
	}
	return nil
}
