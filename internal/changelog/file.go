package changelog

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

const fileTitle = "# CHANGELOG\n\n_This file is auto-generated by donder-release and should not be edited manually._\n\n"

// WriteFile prepends the rendered notes to the changelog file, keeping the
// fixed title block at the top and every earlier release below.
func WriteFile(path, notes string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "unable to read changelog file")
	}

	content := fileTitle + notes
	if rest := strings.TrimPrefix(string(existing), fileTitle); rest != "" {
		content += "\n" + rest
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.Wrap(err, "unable to write changelog file")
	}
	return nil
}
