package protocol

// ResyncRequestPayload is the payload of a ResyncRequest frame: the last
// wire sequence number the player successfully applied.
type ResyncRequestPayload struct {
	LastSeq uint64
}

func EncodeResyncRequest(p *ResyncRequestPayload) []byte {
	e := NewEncoder()
	e.WriteUint64(p.LastSeq)
	return e.Bytes()
}

func DecodeResyncRequest(payload []byte) (*ResyncRequestPayload, error) {
	d := NewDecoder(payload)
	seq, err := d.ReadUint64()
	if err != nil {
		return nil, err
	}
	return &ResyncRequestPayload{LastSeq: seq}, nil
}

// ResyncPatchesPayload is the payload of a ResyncPatches frame: the
// recorder's retained backlog of already-encoded frames starting just
// after FromSeq, replayed verbatim (pkg/session.History.FramesSince).
type ResyncPatchesPayload struct {
	FromSeq uint64
	Frames  [][]byte
}

func EncodeResyncPatches(p *ResyncPatchesPayload) []byte {
	e := NewEncoder()
	e.WriteUint64(p.FromSeq)
	e.WriteUint32(uint32(len(p.Frames)))
	for _, f := range p.Frames {
		e.WriteBlob(f)
	}
	return e.Bytes()
}

func DecodeResyncPatches(payload []byte) (*ResyncPatchesPayload, error) {
	d := NewDecoder(payload)
	from, err := d.ReadUint64()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	frames := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		f, err := d.ReadBlob()
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return &ResyncPatchesPayload{FromSeq: from, Frames: frames}, nil
}
