package protocol

import (
	"github.com/dnorman/domcorder/pkg/stringdiff"
	"github.com/dnorman/domcorder/pkg/vdom"
)

// KeyframePayload is the payload of a Keyframe frame (spec.md §6).
type KeyframePayload struct {
	Document       *vdom.VDocument
	ViewportWidth  uint32
	ViewportHeight uint32
	AssetCount     uint32
}

func EncodeKeyframe(p *KeyframePayload) []byte {
	e := NewEncoder()
	EncodeVDocument(e, p.Document)
	e.WriteUint32(p.ViewportWidth)
	e.WriteUint32(p.ViewportHeight)
	e.WriteUint32(p.AssetCount)
	return e.Bytes()
}

func DecodeKeyframe(payload []byte) (*KeyframePayload, error) {
	d := NewDecoder(payload)
	doc, err := DecodeVDocument(d)
	if err != nil {
		return nil, err
	}
	w, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	h, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	ac, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &KeyframePayload{Document: doc, ViewportWidth: w, ViewportHeight: h, AssetCount: ac}, nil
}

// AssetPayload is the payload of an Asset frame.
type AssetPayload struct {
	AssetID uint32
	URL     string
	MIME    *string
	Bytes   []byte
}

func EncodeAsset(p *AssetPayload) []byte {
	e := NewEncoder()
	e.WriteUint32(p.AssetID)
	e.WriteString(p.URL)
	e.WriteOptString(p.MIME)
	e.WriteBlob(p.Bytes)
	return e.Bytes()
}

func DecodeAsset(payload []byte) (*AssetPayload, error) {
	d := NewDecoder(payload)
	id, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	url, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	mime, err := d.ReadOptString()
	if err != nil {
		return nil, err
	}
	bytes, err := d.ReadBlob()
	if err != nil {
		return nil, err
	}
	return &AssetPayload{AssetID: id, URL: url, MIME: mime, Bytes: bytes}, nil
}

// AssetReferencePayload is the payload of an AssetReference frame: a
// cache-hit substitute for Asset that omits the byte payload (spec.md §4.10).
type AssetReferencePayload struct {
	AssetID uint32
	URL     string
	SHA256  string
	MIME    *string
}

func EncodeAssetReference(p *AssetReferencePayload) []byte {
	e := NewEncoder()
	e.WriteUint32(p.AssetID)
	e.WriteString(p.URL)
	e.WriteString(p.SHA256)
	e.WriteOptString(p.MIME)
	return e.Bytes()
}

func DecodeAssetReference(payload []byte) (*AssetReferencePayload, error) {
	d := NewDecoder(payload)
	id, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	url, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	sha, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	mime, err := d.ReadOptString()
	if err != nil {
		return nil, err
	}
	return &AssetReferencePayload{AssetID: id, URL: url, SHA256: sha, MIME: mime}, nil
}

// DomNodeAddedPayload is the payload of a DomNodeAdded frame.
type DomNodeAddedPayload struct {
	ParentNodeID uint32
	Index        uint32
	Node         *vdom.VNode
	AssetCount   uint32
}

func EncodeDomNodeAdded(p *DomNodeAddedPayload) []byte {
	e := NewEncoder()
	e.WriteUint32(p.ParentNodeID)
	e.WriteUint32(p.Index)
	EncodeVNode(e, p.Node)
	e.WriteUint32(p.AssetCount)
	return e.Bytes()
}

func DecodeDomNodeAdded(payload []byte) (*DomNodeAddedPayload, error) {
	d := NewDecoder(payload)
	parent, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	index, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	node, err := DecodeVNode(d)
	if err != nil {
		return nil, err
	}
	ac, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &DomNodeAddedPayload{ParentNodeID: parent, Index: index, Node: node, AssetCount: ac}, nil
}

// DomNodeRemovedPayload is the payload of a DomNodeRemoved frame.
type DomNodeRemovedPayload struct {
	NodeID uint32
}

func EncodeDomNodeRemoved(p *DomNodeRemovedPayload) []byte {
	e := NewEncoder()
	e.WriteUint32(p.NodeID)
	return e.Bytes()
}

func DecodeDomNodeRemoved(payload []byte) (*DomNodeRemovedPayload, error) {
	d := NewDecoder(payload)
	id, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &DomNodeRemovedPayload{NodeID: id}, nil
}

// DomAttributeChangedPayload is the payload of a DomAttributeChanged frame.
type DomAttributeChangedPayload struct {
	NodeID         uint32
	AttributeName  string
	AttributeValue string
}

func EncodeDomAttributeChanged(p *DomAttributeChangedPayload) []byte {
	e := NewEncoder()
	e.WriteUint32(p.NodeID)
	e.WriteString(p.AttributeName)
	e.WriteString(p.AttributeValue)
	return e.Bytes()
}

func DecodeDomAttributeChanged(payload []byte) (*DomAttributeChangedPayload, error) {
	d := NewDecoder(payload)
	id, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	name, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	value, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &DomAttributeChangedPayload{NodeID: id, AttributeName: name, AttributeValue: value}, nil
}

// DomAttributeRemovedPayload is the payload of a DomAttributeRemoved frame.
type DomAttributeRemovedPayload struct {
	NodeID        uint32
	AttributeName string
}

func EncodeDomAttributeRemoved(p *DomAttributeRemovedPayload) []byte {
	e := NewEncoder()
	e.WriteUint32(p.NodeID)
	e.WriteString(p.AttributeName)
	return e.Bytes()
}

func DecodeDomAttributeRemoved(payload []byte) (*DomAttributeRemovedPayload, error) {
	d := NewDecoder(payload)
	id, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	name, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &DomAttributeRemovedPayload{NodeID: id, AttributeName: name}, nil
}

// DomTextChangedPayload is the payload of a DomTextChanged frame: a node id
// plus an ordered list of StringDiff ops (spec.md §6).
type DomTextChangedPayload struct {
	NodeID     uint32
	Operations []stringdiff.Op
}

func EncodeDomTextChanged(p *DomTextChangedPayload) []byte {
	e := NewEncoder()
	e.WriteUint32(p.NodeID)
	e.WriteUint32(uint32(len(p.Operations)))
	for _, op := range p.Operations {
		switch op.Kind {
		case stringdiff.OpInsert:
			e.WriteByte(0)
			e.WriteUint32(uint32(op.Index))
			e.WriteString(op.Content)
		case stringdiff.OpRemove:
			e.WriteByte(1)
			e.WriteUint32(uint32(op.Index))
			e.WriteUint32(uint32(op.Count))
		}
	}
	return e.Bytes()
}

func DecodeDomTextChanged(payload []byte) (*DomTextChangedPayload, error) {
	d := NewDecoder(payload)
	id, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	ops := make([]stringdiff.Op, 0, count)
	for i := 0; i < count; i++ {
		tag, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		index, err := d.ReadUint32()
		if err != nil {
			return nil, err
		}
		switch tag {
		case 0:
			text, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			ops = append(ops, stringdiff.Op{Kind: stringdiff.OpInsert, Index: int(index), Content: text})
		case 1:
			n, err := d.ReadUint32()
			if err != nil {
				return nil, err
			}
			ops = append(ops, stringdiff.Op{Kind: stringdiff.OpRemove, Index: int(index), Count: int(n)})
		default:
			return nil, ErrUnknownFrameType
		}
	}
	return &DomTextChangedPayload{NodeID: id, Operations: ops}, nil
}

// AdoptedStyleSheetsChangedPayload is the payload of an
// AdoptedStyleSheetsChanged frame: the new ordered set of stylesheet ids
// on a root, plus how many of them are newly-declared (gate count).
type AdoptedStyleSheetsChangedPayload struct {
	RootNodeID     uint32
	StyleSheetIDs  []uint32
	AddedCount     uint32
}

func EncodeAdoptedStyleSheetsChanged(p *AdoptedStyleSheetsChangedPayload) []byte {
	e := NewEncoder()
	e.WriteUint32(p.RootNodeID)
	e.WriteUint32(uint32(len(p.StyleSheetIDs)))
	for _, id := range p.StyleSheetIDs {
		e.WriteUint32(id)
	}
	e.WriteUint32(p.AddedCount)
	return e.Bytes()
}

func DecodeAdoptedStyleSheetsChanged(payload []byte) (*AdoptedStyleSheetsChangedPayload, error) {
	d := NewDecoder(payload)
	root, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		id, err := d.ReadUint32()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	added, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &AdoptedStyleSheetsChangedPayload{RootNodeID: root, StyleSheetIDs: ids, AddedCount: added}, nil
}

// AdoptedStyleSheetAddedPayload is the payload of an AdoptedStyleSheetAdded
// frame: the full stylesheet content plus its asset gate count (for
// url(...) references inside the sheet text).
type AdoptedStyleSheetAddedPayload struct {
	StyleSheet *vdom.VStyleSheet
	AssetCount uint32
}

func EncodeAdoptedStyleSheetAdded(p *AdoptedStyleSheetAddedPayload) []byte {
	e := NewEncoder()
	EncodeVStyleSheet(e, p.StyleSheet)
	e.WriteUint32(p.AssetCount)
	return e.Bytes()
}

func DecodeAdoptedStyleSheetAdded(payload []byte) (*AdoptedStyleSheetAddedPayload, error) {
	d := NewDecoder(payload)
	sheet, err := DecodeVStyleSheet(d)
	if err != nil {
		return nil, err
	}
	ac, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &AdoptedStyleSheetAddedPayload{StyleSheet: sheet, AssetCount: ac}, nil
}

// ViewportResizedPayload is the payload of a ViewportResized frame.
type ViewportResizedPayload struct {
	Width  uint32
	Height uint32
}

func EncodeViewportResized(p *ViewportResizedPayload) []byte {
	e := NewEncoder()
	e.WriteUint32(p.Width)
	e.WriteUint32(p.Height)
	return e.Bytes()
}

func DecodeViewportResized(payload []byte) (*ViewportResizedPayload, error) {
	d := NewDecoder(payload)
	w, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	h, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &ViewportResizedPayload{Width: w, Height: h}, nil
}

// TimestampPayload is the payload of a Timestamp frame: milliseconds since
// the recorder's frame-zero epoch (spec.md §6).
type TimestampPayload struct {
	TimestampMillis int64
}

func EncodeTimestamp(p *TimestampPayload) []byte {
	e := NewEncoder()
	e.WriteInt64(p.TimestampMillis)
	return e.Bytes()
}

func DecodeTimestamp(payload []byte) (*TimestampPayload, error) {
	d := NewDecoder(payload)
	ts, err := d.ReadInt64()
	if err != nil {
		return nil, err
	}
	return &TimestampPayload{TimestampMillis: ts}, nil
}

// RecordingMetadataPayload is the payload of the connect-time
// RecordingMetadata frame (spec.md §4.10).
type RecordingMetadataPayload struct {
	InitialURL               string
	HeartbeatIntervalSeconds uint32
}

func EncodeRecordingMetadata(p *RecordingMetadataPayload) []byte {
	e := NewEncoder()
	e.WriteString(p.InitialURL)
	e.WriteUint32(p.HeartbeatIntervalSeconds)
	return e.Bytes()
}

func DecodeRecordingMetadata(payload []byte) (*RecordingMetadataPayload, error) {
	d := NewDecoder(payload)
	url, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	hb, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &RecordingMetadataPayload{InitialURL: url, HeartbeatIntervalSeconds: hb}, nil
}

// CacheManifestEntry is one entry of a CacheManifest frame.
type CacheManifestEntry struct {
	URL    string
	SHA256 string
}

// CacheManifestPayload is the payload of a CacheManifest frame.
type CacheManifestPayload struct {
	Entries []CacheManifestEntry
}

func EncodeCacheManifest(p *CacheManifestPayload) []byte {
	e := NewEncoder()
	e.WriteUint32(uint32(len(p.Entries)))
	for _, ent := range p.Entries {
		e.WriteString(ent.URL)
		e.WriteString(ent.SHA256)
	}
	return e.Bytes()
}

func DecodeCacheManifest(payload []byte) (*CacheManifestPayload, error) {
	d := NewDecoder(payload)
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	entries := make([]CacheManifestEntry, 0, count)
	for i := 0; i < count; i++ {
		url, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		sha, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		entries = append(entries, CacheManifestEntry{URL: url, SHA256: sha})
	}
	return &CacheManifestPayload{Entries: entries}, nil
}

// EncodeHeartbeat returns the (empty) payload of a Heartbeat frame.
func EncodeHeartbeat() []byte { return nil }
