package domain

import "encoding/json"

func marshalSnapshot(state any) ([]byte, error) {
	return json.Marshal(state)
}

func unmarshalSnapshot(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return Errorf(CodeUnknownEventType, "snapshot state does not round-trip: %v", err)
	}
	return nil
}
