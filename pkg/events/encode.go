package events

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create event CBOR encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create event CBOR decoder mode: %v", err))
	}
}

// Text renders events one per line, indented by depth. Groups open with "+"
// and close with "-"; segments list their values sorted by name.
func Text(events []Event) string {
	var b strings.Builder
	depth := 0
	for _, e := range events {
		if e.Kind == KindExit && depth > 0 {
			depth--
		}
		b.WriteString(strings.Repeat("  ", depth))
		switch e.Kind {
		case KindEnter:
			fmt.Fprintf(&b, "+ %s", e.Path)
			depth++
		case KindExit:
			fmt.Fprintf(&b, "- %s", e.Path)
		default:
			b.WriteString(e.Path)
			for _, k := range slices.Sorted(maps.Keys(e.Values)) {
				fmt.Fprintf(&b, " %s=%q", k, e.Values[k])
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteNDJSON writes one JSON object per line.
func WriteNDJSON(w io.Writer, events []Event) error {
	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode event %d: %w", e.Seq, err)
		}
	}
	return nil
}

// MarshalCBOR encodes events as one canonical CBOR array with integer keys.
func MarshalCBOR(events []Event) ([]byte, error) {
	return encMode.Marshal(events)
}

// UnmarshalCBOR decodes what MarshalCBOR produced.
func UnmarshalCBOR(data []byte) ([]Event, error) {
	var events []Event
	if err := decMode.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

// NewEncoder streams events as a CBOR sequence, one item per Encode call.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}
