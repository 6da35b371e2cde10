package log

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Events are stored as a bare concatenation of CBOR maps with integer
// keys. Encoding is deterministic so identical events produce identical
// bytes; decoding stays lenient so streams written by newer versions
// remain readable.
var (
	eventEnc = mustEncMode()
	eventDec = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	// RFC3339Nano keeps event ordering legible under sub-millisecond bursts
	opts.Time = cbor.TimeRFC3339Nano
	opts.IndefLength = cbor.IndefLengthForbidden
	em, err := opts.EncMode()
	if err != nil {
		panic("log: event encoder mode: " + err.Error())
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic("log: event decoder mode: " + err.Error())
	}
	return dm
}

// eventAlias strips Event's BinaryMarshaler/BinaryUnmarshaler methods so
// the CBOR codec encodes the struct fields instead of recursing back into
// MarshalBinary/UnmarshalBinary.
type eventAlias Event

// MarshalBinary encodes the event as a deterministic CBOR map.
func (e Event) MarshalBinary() ([]byte, error) {
	return eventEnc.Marshal(eventAlias(e))
}

// UnmarshalBinary decodes a CBOR-encoded event.
func (e *Event) UnmarshalBinary(data []byte) error {
	return eventDec.Unmarshal(data, (*eventAlias)(e))
}

func newEventEncoder(w io.Writer) *cbor.Encoder {
	return eventEnc.NewEncoder(w)
}

func newEventDecoder(r io.Reader) *cbor.Decoder {
	return eventDec.NewDecoder(r)
}
