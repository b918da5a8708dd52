// Package fingerprint defines the dedup identity of clipboard payloads.
//
// Text is identified by its exact value (case and whitespace sensitive).
// Images are identified by the content hash supplied at capture time; the
// hash is trusted as-is and never recomputed here.
package fingerprint

import "quickclip/pkg/types"

// Fingerprint is the identity of a payload within its kind.
type Fingerprint struct {
	Kind  types.Kind
	Value string
}

// Of returns the fingerprint of p.
func Of(p types.Payload) Fingerprint {
	switch p.Kind {
	case types.KindImage:
		if p.Image == nil {
			return Fingerprint{Kind: types.KindImage}
		}
		return Fingerprint{Kind: types.KindImage, Value: p.Image.Hash}
	default:
		return Fingerprint{Kind: types.KindText, Value: p.Text}
	}
}

// OfEntry returns the fingerprint of a stored entry.
func OfEntry(e types.Entry) Fingerprint {
	return Of(e.Payload())
}

// Equal reports whether a and b identify the same content. Text and image
// fingerprints never compare equal.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Kind == o.Kind && f.Value == o.Value
}

// IsZero reports an empty payload: empty text or a missing image hash.
func (f Fingerprint) IsZero() bool {
	return f.Value == ""
}

// String is used as a map key by the history index.
func (f Fingerprint) String() string {
	return string(f.Kind) + ":" + f.Value
}
