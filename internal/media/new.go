package media

import (
	"fmt"

	"github.com/romeoscript/crime-report/internal/config"
)

// New returns the uploader selected by cfg.Provider.
func New(cfg config.MediaConfig) (Uploader, error) {
	switch cfg.Provider {
	case config.MediaCloudinary:
		return NewCloudinary(cfg.CloudinaryURL, cfg.Folder)
	case config.MediaLocal, "":
		return NewLocal(cfg.UploadDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownMediaProvider, cfg.Provider)
	}
}
