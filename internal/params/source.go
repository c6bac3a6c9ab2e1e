package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/temirov/cmdsrv/internal/registry"
	"github.com/temirov/cmdsrv/internal/types"
)

const (
	maximumBodyBytes        = 1 << 20
	mimeTypeForm            = "application/x-www-form-urlencoded"
	errorMalformedBody      = "malformed request body: %v"
	errorBodyValueFormat    = "field '%s' must be a string, number, boolean or a list of those"
	errorBodyTooLargeFormat = "request body exceeds %d bytes"
)

// FromRequest collects the raw fields of request. Read methods use the query string;
// write methods use the JSON or form body and fall back to the query string when the
// body is empty.
func FromRequest(request *http.Request) (Source, error) {
	query := Source(request.URL.Query())
	if types.IsReadMethod(request.Method) || request.Body == nil {
		return query, nil
	}

	body, err := io.ReadAll(io.LimitReader(request.Body, maximumBodyBytes+1))
	if err != nil {
		return nil, registry.NewRequestError(errorMalformedBody, err)
	}
	if len(body) > maximumBodyBytes {
		return nil, registry.NewRequestError(errorBodyTooLargeFormat, maximumBodyBytes)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return query, nil
	}

	mediaType, _, _ := mime.ParseMediaType(request.Header.Get("Content-Type"))
	if mediaType == mimeTypeForm {
		values, parseErr := url.ParseQuery(string(body))
		if parseErr != nil {
			return nil, registry.NewRequestError(errorMalformedBody, parseErr)
		}
		return Source(values), nil
	}
	return decodeJSONBody(body)
}

func decodeJSONBody(body []byte) (Source, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var document map[string]any
	if err := decoder.Decode(&document); err != nil {
		return nil, registry.NewRequestError(errorMalformedBody, err)
	}

	source := make(Source, len(document))
	for name, value := range document {
		if value == nil {
			source[name] = []string{}
			continue
		}
		if list, isList := value.([]any); isList {
			entries := make([]string, 0, len(list))
			for _, element := range list {
				entry, ok := scalarString(element)
				if !ok {
					return nil, registry.NewRequestError(errorBodyValueFormat, name)
				}
				entries = append(entries, entry)
			}
			source[name] = entries
			continue
		}
		entry, ok := scalarString(value)
		if !ok {
			return nil, registry.NewRequestError(errorBodyValueFormat, name)
		}
		source[name] = []string{entry}
	}
	return source, nil
}

func scalarString(value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case bool:
		return strconv.FormatBool(typed), true
	case json.Number:
		return typed.String(), true
	default:
		return fmt.Sprint(typed), false
	}
}
