package flow

// DatumType classifies a datum packet. The order of the constants is the
// status priority used by EdgeDataInfo to summarize a batch: a batch's
// MaxStatus is the highest-valued type present.
type DatumType int

const (
	DatumData DatumType = iota
	DatumEmpty
	DatumComplete
	DatumError
	DatumInvalid
)

func (t DatumType) String() string {
	switch t {
	case DatumData:
		return "data"
	case DatumEmpty:
		return "empty"
	case DatumComplete:
		return "complete"
	case DatumError:
		return "error"
	case DatumInvalid:
		return "invalid"
	}
	return "unknown"
}

// Datum is a single packet exchanged on an edge: either a payload or a
// control marker (empty, complete, error, invalid).
type Datum struct {
	typ     DatumType
	payload any
	errMsg  string
}

// NewDatum returns a data packet carrying v.
func NewDatum(v any) Datum {
	return Datum{typ: DatumData, payload: v}
}

// EmptyDatum returns a packet carrying no payload for this step.
func EmptyDatum() Datum {
	return Datum{typ: DatumEmpty}
}

// CompleteDatum returns the terminal packet signalling the producer is done.
func CompleteDatum() Datum {
	return Datum{typ: DatumComplete}
}

// ErrorDatum returns a packet reporting a producer-side failure.
func ErrorDatum(msg string) Datum {
	return Datum{typ: DatumError, errMsg: msg}
}

// InvalidDatum returns a packet marking unusable data.
func InvalidDatum() Datum {
	return Datum{typ: DatumInvalid}
}

func (d Datum) Type() DatumType { return d.typ }

// Value returns the payload of a data packet, nil for control packets.
func (d Datum) Value() any { return d.payload }

// ErrorMessage returns the message of an error packet.
func (d Datum) ErrorMessage() string { return d.errMsg }

// EdgeDatum is what actually travels on an edge: a datum and its stamp.
type EdgeDatum struct {
	Datum Datum
	Stamp Stamp
}
