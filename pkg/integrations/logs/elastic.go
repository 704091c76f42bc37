package logs

import "encoding/json"

// NewElastic indexes each entry as one document.
func NewElastic(url string) *Forwarder {
	if url == "" {
		return nil
	}
	return newForwarder(url, func(entry map[string]any) ([]byte, error) {
		return json.Marshal(entry)
	})
}
