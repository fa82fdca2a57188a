package mainconfig

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/care-coordinator/internal/config"
)

// Load reads an optional .env file and then the environment, so every binary
// shares the same local-development setup. Variables that are already set
// win over the file.
func Load(files ...string) (*appconfig.Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return appconfig.Load(), nil
}
