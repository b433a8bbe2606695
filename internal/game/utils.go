// internal/game/utils.go
package game

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// EncodeEvent marshals an Event for the wire.
// Logs a warning and returns empty JSON "{}" on marshalling error.
func EncodeEvent(ev Event) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.Warnf("Failed to marshal %s event: %v", ev.Type, err)
		return []byte("{}")
	}
	return data
}
