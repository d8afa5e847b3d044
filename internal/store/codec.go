package store

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/lazypower/vitality/internal/vitality"
)

// snapshotEnc uses Core Deterministic Encoding so identical states always
// produce identical snapshot bytes. Times keep nanosecond precision.
var snapshotEnc cbor.EncMode

var snapshotDec cbor.DecMode

func init() {
	var err error
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	snapshotEnc, err = opts.EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	snapshotDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeSnapshot serializes a state for the history ledger.
func EncodeSnapshot(s vitality.State) ([]byte, error) {
	return snapshotEnc.Marshal(s)
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(data []byte) (vitality.State, error) {
	var s vitality.State
	if err := snapshotDec.Unmarshal(data, &s); err != nil {
		return vitality.State{}, err
	}
	return s, nil
}
