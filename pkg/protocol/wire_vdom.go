package protocol

import (
	"github.com/dnorman/domcorder/pkg/vdom"
)

// EncodeVNode writes a VNode as a nested record (no record-level length
// prefix): kind tag, node id, then per-kind fields, per spec.md §3/§6.
func EncodeVNode(e *Encoder, n *vdom.VNode) {
	e.WriteByte(byte(n.Kind))
	e.WriteUint32(uint32(n.ID))
	switch n.Kind {
	case vdom.KindElement:
		e.WriteString(n.Tag)
		e.WriteString(n.Namespace)
		writeAttrs(e, n.Attrs)
		e.WriteUint32(uint32(len(n.Children)))
		for _, c := range n.Children {
			EncodeVNode(e, c)
		}
		e.WriteBool(n.Shadow != nil)
		if n.Shadow != nil {
			e.WriteUint32(uint32(len(n.Shadow)))
			for _, c := range n.Shadow {
				EncodeVNode(e, c)
			}
		}
	case vdom.KindText, vdom.KindCData, vdom.KindComment:
		e.WriteString(n.Text)
	case vdom.KindProcessingInstruction:
		e.WriteString(n.PITarget)
		e.WriteString(n.PIData)
	case vdom.KindDocumentType:
		e.WriteString(n.DoctypeName)
		e.WriteString(n.DoctypePublicID)
		e.WriteString(n.DoctypeSystemID)
	}
}

// DecodeVNode is the inverse of EncodeVNode.
func DecodeVNode(d *Decoder) (*vdom.VNode, error) {
	return decodeVNode(d, 0)
}

func decodeVNode(d *Decoder, depth int) (*vdom.VNode, error) {
	if depth > MaxVNodeDepth {
		return nil, ErrMaxDepthExceeded
	}
	kindByte, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	id, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	n := &vdom.VNode{Kind: vdom.Kind(kindByte), ID: vdom.NodeID(id)}
	switch n.Kind {
	case vdom.KindElement:
		if n.Tag, err = d.ReadString(); err != nil {
			return nil, err
		}
		if n.Namespace, err = d.ReadString(); err != nil {
			return nil, err
		}
		if n.Attrs, err = readAttrs(d); err != nil {
			return nil, err
		}
		childCount, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		n.Children = make([]*vdom.VNode, 0, childCount)
		for i := 0; i < childCount; i++ {
			c, err := decodeVNode(d, depth+1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, c)
		}
		hasShadow, err := d.ReadBool()
		if err != nil {
			return nil, err
		}
		if hasShadow {
			shadowCount, err := d.ReadCollectionCount()
			if err != nil {
				return nil, err
			}
			n.Shadow = make([]*vdom.VNode, 0, shadowCount)
			for i := 0; i < shadowCount; i++ {
				c, err := decodeVNode(d, depth+1)
				if err != nil {
					return nil, err
				}
				n.Shadow = append(n.Shadow, c)
			}
		}
	case vdom.KindText, vdom.KindCData, vdom.KindComment:
		if n.Text, err = d.ReadString(); err != nil {
			return nil, err
		}
	case vdom.KindProcessingInstruction:
		if n.PITarget, err = d.ReadString(); err != nil {
			return nil, err
		}
		if n.PIData, err = d.ReadString(); err != nil {
			return nil, err
		}
	case vdom.KindDocumentType:
		if n.DoctypeName, err = d.ReadString(); err != nil {
			return nil, err
		}
		if n.DoctypePublicID, err = d.ReadString(); err != nil {
			return nil, err
		}
		if n.DoctypeSystemID, err = d.ReadString(); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func writeAttrs(e *Encoder, attrs map[string]string) {
	e.WriteUint32(uint32(len(attrs)))
	for k, v := range attrs {
		e.WriteString(k)
		e.WriteString(v)
	}
}

func readAttrs(d *Decoder) (map[string]string, error) {
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]string, count)
	for i := 0; i < count; i++ {
		k, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		attrs[k] = v
	}
	return attrs, nil
}

// EncodeVStyleSheet writes a stylesheet record.
func EncodeVStyleSheet(e *Encoder, s *vdom.VStyleSheet) {
	e.WriteUint32(uint32(s.ID))
	e.WriteString(s.Media)
	e.WriteString(s.Text)
}

// DecodeVStyleSheet is the inverse of EncodeVStyleSheet.
func DecodeVStyleSheet(d *Decoder) (*vdom.VStyleSheet, error) {
	id, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	media, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	text, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &vdom.VStyleSheet{ID: vdom.StyleSheetID(id), Media: media, Text: text}, nil
}

// EncodeVDocument writes a full virtual document (the Keyframe payload's
// vDocument field).
func EncodeVDocument(e *Encoder, doc *vdom.VDocument) {
	e.WriteUint32(uint32(doc.ID))
	e.WriteUint32(uint32(len(doc.Children)))
	for _, c := range doc.Children {
		EncodeVNode(e, c)
	}
	e.WriteUint32(uint32(len(doc.AdoptedStyleSheets)))
	for _, s := range doc.AdoptedStyleSheets {
		EncodeVStyleSheet(e, s)
	}
}

// DecodeVDocument is the inverse of EncodeVDocument.
func DecodeVDocument(d *Decoder) (*vdom.VDocument, error) {
	id, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	childCount, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	doc := &vdom.VDocument{ID: vdom.NodeID(id)}
	for i := 0; i < childCount; i++ {
		c, err := DecodeVNode(d)
		if err != nil {
			return nil, err
		}
		doc.Children = append(doc.Children, c)
	}
	sheetCount, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < sheetCount; i++ {
		s, err := DecodeVStyleSheet(d)
		if err != nil {
			return nil, err
		}
		doc.AdoptedStyleSheets = append(doc.AdoptedStyleSheets, s)
	}
	return doc, nil
}
