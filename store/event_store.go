package store

import (
	"fmt"
	"regexp"

	json "github.com/goccy/go-json"
)

// payloadKeyPattern limits the payload keys aggregations may address. Keys
// end up inside JSON paths, so anything else is refused.
var payloadKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func checkPayloadKey(key string) error {
	if !payloadKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid payload key %q", key)
	}
	return nil
}

// encodePayload renders a payload for a string column; nil becomes "{}".
func encodePayload(payload map[string]any) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodePayload(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
