package completion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/temirov/cmdsrv/internal/types"
)

const textSeparator = "\n"

// Render writes candidates as a JSON array or newline-delimited text.
func Render(candidates []string, format string) ([]byte, error) {
	switch format {
	case types.FormatText:
		return []byte(strings.Join(candidates, textSeparator)), nil
	case types.FormatJSON, "":
		if candidates == nil {
			candidates = []string{}
		}
		return json.Marshal(candidates)
	default:
		return nil, fmt.Errorf("unsupported completion format %q", format)
	}
}
