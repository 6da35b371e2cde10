package log

import (
	"errors"
	"io"
	"os"
)

// ReadFile reads all events from a CBOR event log file, in order.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadAll(f)
}

// ReadAll reads all events from a CBOR event stream until EOF.
func ReadAll(r io.Reader) ([]Event, error) {
	dec := newEventDecoder(r)

	var events []Event
	for {
		var event Event
		if err := dec.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, err
		}
		events = append(events, event)
	}
}
