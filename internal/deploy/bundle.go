package deploy

import (
	"os"

	"github.com/iosl-sustainability/carbon-scheduler/utils"
)

// BundleSource tars a function's source directory into a temp file and
// returns its path (see DESIGN.md for why this archives rather than zips).
func BundleSource(srcDir string) (string, error) {
	tmp, err := os.CreateTemp("", "carbon-scheduler-src-*.tar")
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	if err := utils.Tar(srcDir, tmp); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
