package player

import "github.com/dnorman/domcorder/pkg/domtree"

// ElementHost adapts a domtree.Node element to asset.ElementHost, letting
// AssetRegistry rewrite attribute values without depending on domtree.
type ElementHost struct {
	Doc  *domtree.Document
	Node *domtree.Node
}

func (h *ElementHost) AssetAttr(name string) (string, bool) {
	v, ok := h.Node.Attrs[name]
	return v, ok
}

func (h *ElementHost) SetAssetAttr(name, value string) {
	h.Doc.SetAttribute(h.Node, name, value)
}

// StyleElementHost adapts a <style> element's single text child to
// asset.StyleSheetHost.
type StyleElementHost struct {
	Doc      *domtree.Document
	TextNode *domtree.Node
}

func (h *StyleElementHost) AssetCSSText() string { return h.TextNode.Data }
func (h *StyleElementHost) SetAssetCSSText(css string) {
	h.Doc.SetTextData(h.TextNode, css)
}
