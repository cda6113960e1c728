package ordinals

// Tag is the first byte of an envelope field key. Unrecognized even tags make the inscription unbound.
type Tag uint8

const (
	TagBody    Tag = 0
	TagPointer Tag = 2
	// TagUnbound is never recognized and exists to produce unbound inscriptions.
	TagUnbound Tag = 66

	TagContentType     Tag = 1
	TagParent          Tag = 3
	TagMetadata        Tag = 5
	TagMetaprotocol    Tag = 7
	TagContentEncoding Tag = 9
	TagDelegate        Tag = 11
	TagRune            Tag = 13
	TagNote            Tag = 15
	TagNop             Tag = 255
)

// IsChunked reports whether the values of a repeated tag are concatenated instead of being duplicates.
func (t Tag) IsChunked() bool {
	return t == TagMetadata
}

func (t Tag) Bytes() []byte {
	if t == TagBody {
		return []byte{}
	}
	return []byte{byte(t)}
}

func (t Tag) key() string {
	return string(t.Bytes())
}

// fields are keyed by the raw key push, which may be longer than one byte.
type fields map[string][][]byte

func (f fields) take(tag Tag) []byte {
	values, ok := f[tag.key()]
	if !ok || len(values) == 0 {
		return nil
	}
	if tag.IsChunked() {
		delete(f, tag.key())
		var out []byte
		for _, value := range values {
			out = append(out, value...)
		}
		return out
	}
	if len(values) == 1 {
		delete(f, tag.key())
	} else {
		f[tag.key()] = values[1:]
	}
	return values[0]
}

func (f fields) takeAll(tag Tag) [][]byte {
	values := f[tag.key()]
	delete(f, tag.key())
	return values
}
