package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bft-labs/ipcheck/internal/domain"
)

// SelectLocalFile describes a package on the local file system.
// The file is stat'ed now and opened lazily by each reader.
func SelectLocalFile(path string) (domain.SelectedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.SelectedFile{}, &domain.ReadError{Name: filepath.Base(path), Err: err}
	}
	if !info.Mode().IsRegular() {
		return domain.SelectedFile{}, &domain.ReadError{
			Name: filepath.Base(path),
			Err:  fmt.Errorf("%s is not a regular file", path),
		}
	}
	return domain.SelectedFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}
