package serialize

import "scenelogic/internal/lerrors"

const (
	// identifierV1 and identifierV2 are the 4-byte ASCII magic spec.md §6
	// names: "a feature-level-specific 4-byte identifier lets load() refuse
	// a file from a newer engine without even looking at the root table."
	identifierV1 = "rl01" // feature_level 1
	identifierV2 = "rl02" // feature_level >= 2

	// headerLen is root_offset(4) + identifier(4) + feature_level(4) +
	// last_object_id(8). Save always writes the root table immediately
	// after the header, so root_offset is a fixed constant rather than real
	// indirection — this format has exactly one table, unlike a general
	// FlatBuffers file, but keeping the field lets a future revision move
	// the root without breaking the header shape.
	headerLen = 20
)

func writeHeader(w *writer, featureLevel uint32, lastObjectID uint64) {
	w.u32(headerLen)
	identifier := identifierV1
	if featureLevel >= 2 {
		identifier = identifierV2
	}
	if w.err == nil {
		if _, err := w.buf.WriteString(identifier); err != nil {
			w.fail(err)
		}
	}
	w.u32(featureLevel)
	w.u64(lastObjectID)
}

type header struct {
	rootOffset   uint32
	featureLevel uint32
	lastObjectID uint64
}

// readHeader parses and validates the fixed header, diagnosing a truncated
// file, an unrecognized identifier, and an identifier/feature_level pairing
// that could not have come from this package's own writeHeader (spec.md §6
// "Header diagnostics").
func readHeader(r *reader) (header, error) {
	var h header
	h.rootOffset = r.u32()
	idBytes := r.raw(4)
	h.featureLevel = r.u32()
	h.lastObjectID = r.u64()
	if r.err != nil {
		return header{}, lerrors.Wrap(lerrors.CorruptedBinary, r.err, "file is shorter than the minimum header size (%d bytes)", headerLen)
	}

	identifier := string(idBytes)
	if identifier != identifierV1 && identifier != identifierV2 {
		return header{}, lerrors.New(lerrors.CorruptedBinary, "not a scenelogic binary file (bad identifier %q)", identifier)
	}
	if (identifier == identifierV1) == (h.featureLevel >= 2) {
		return header{}, lerrors.New(lerrors.CorruptedBinary, "file identifier %q is inconsistent with its stored feature_level %d", identifier, h.featureLevel)
	}
	return h, nil
}
