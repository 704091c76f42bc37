package logs

import (
	"encoding/json"
	"strconv"
	"time"
)

// NewLoki pushes entries to a Loki push endpoint labelled with app and device.
func NewLoki(url, device string) *Forwarder {
	if url == "" {
		return nil
	}
	labels := map[string]string{"app": "controller"}
	if device != "" {
		labels["device"] = device
	}
	return newForwarder(url, func(entry map[string]any) ([]byte, error) {
		return json.Marshal(lokiPayload(labels, time.Now(), entry))
	})
}

func lokiPayload(labels map[string]string, at time.Time, entry map[string]any) map[string]any {
	return map[string]any{
		"streams": []any{
			map[string]any{
				"stream": labels,
				"values": [][]string{
					{strconv.FormatInt(at.UnixNano(), 10), toJSON(entry)},
				},
			},
		},
	}
}
