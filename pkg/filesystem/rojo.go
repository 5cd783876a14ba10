package filesystem

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// RojoDataDirectoryName is the name of the Rojo data directory.
	RojoDataDirectoryName = ".rojo"

	// rojoConfigurationName is the name of the global Rojo configuration file
	// inside the user's home directory.
	rojoConfigurationName = ".rojo.toml"

	// RojoTrashDirectoryName is the name of the trash subdirectory within the
	// Rojo data directory, used unless a build or syncback invocation passes
	// --no-trash.
	RojoTrashDirectoryName = "trash"
)

// HomeDirectory is the cached path to the current user's home directory.
var HomeDirectory string

// RojoDataDirectoryPath is the path to the Rojo data directory. It can be
// overridden in init functions or entry points, but this should be done
// before any calls to Rojo.
var RojoDataDirectoryPath string

// RojoConfigurationPath is the path to the global Rojo configuration file.
var RojoConfigurationPath string

// init performs global initialization.
func init() {
	// Grab the current user's home directory.
	if h, err := os.UserHomeDir(); err != nil {
		panic(errors.Wrap(err, "unable to query user's home directory"))
	} else if h == "" {
		panic(errors.New("home directory path empty"))
	} else {
		HomeDirectory = h
	}

	// Compute the path to the Rojo data directory.
	RojoDataDirectoryPath = filepath.Join(HomeDirectory, RojoDataDirectoryName)

	// Compute the path to the configuration file.
	RojoConfigurationPath = filepath.Join(HomeDirectory, rojoConfigurationName)
}

// Rojo computes (and optionally creates) subdirectories inside the Rojo data
// directory.
func Rojo(create bool, pathComponents ...string) (string, error) {
	// Compute the target path.
	result := filepath.Join(RojoDataDirectoryPath, filepath.Join(pathComponents...))

	// If requested, attempt to create the Rojo directory and the specified
	// subpath. Also ensure that the Rojo data directory is hidden.
	if create {
		if err := os.MkdirAll(result, 0700); err != nil {
			return "", errors.Wrap(err, "unable to create subpath")
		} else if err := MarkHidden(RojoDataDirectoryPath); err != nil {
			return "", errors.Wrap(err, "unable to hide Rojo data directory")
		}
	}

	// Success.
	return result, nil
}
