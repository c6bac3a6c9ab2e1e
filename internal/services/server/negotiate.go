package server

import (
	"mime"
	"strconv"
	"strings"

	"github.com/temirov/cmdsrv/internal/types"
)

// NegotiateFormat picks json or text from an Accept header. The earlier range wins ties and
// json is the default.
func NegotiateFormat(accept string) string {
	bestFormat := types.FormatJSON
	bestQuality := -1.0
	for _, mediaRange := range strings.Split(accept, ",") {
		mediaType, parameters, err := mime.ParseMediaType(strings.TrimSpace(mediaRange))
		if err != nil {
			continue
		}
		quality := 1.0
		if rawQuality, found := parameters["q"]; found {
			parsed, parseErr := strconv.ParseFloat(rawQuality, 64)
			if parseErr != nil {
				continue
			}
			quality = parsed
		}
		if quality <= 0 {
			continue
		}
		format, supported := formatForMediaType(mediaType)
		if !supported {
			continue
		}
		if quality > bestQuality {
			bestFormat = format
			bestQuality = quality
		}
	}
	return bestFormat
}

func formatForMediaType(mediaType string) (string, bool) {
	switch {
	case mediaType == types.MimeTypeJSON, mediaType == "application/*", mediaType == "*/*":
		return types.FormatJSON, true
	case strings.HasPrefix(mediaType, "text/"):
		return types.FormatText, true
	default:
		return "", false
	}
}
