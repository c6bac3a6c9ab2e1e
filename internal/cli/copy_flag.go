package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/temirov/cmdsrv/internal/services/clipboard"
)

const (
	copyFlagName             = "copy"
	copyFlagDescription      = "copy the output to the system clipboard"
	missingCopierMessage     = "clipboard is not configured"
	copyOutputFailureMessage = "copy output: %w"
)

var errMissingCopier = errors.New(missingCopierMessage)

func registerCopyFlag(flagSet *pflag.FlagSet, target *bool) {
	registerBooleanFlag(flagSet, target, copyFlagName, false, copyFlagDescription)
}

// copyOutput places the rendered output on the clipboard without its trailing newline.
func copyOutput(copier clipboard.Copier, rendered string) error {
	if copier == nil {
		return errMissingCopier
	}
	if err := copier.Copy(strings.TrimRight(rendered, "\n")); err != nil {
		return fmt.Errorf(copyOutputFailureMessage, err)
	}
	return nil
}
