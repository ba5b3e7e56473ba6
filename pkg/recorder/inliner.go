// Package recorder implements the recorder half of the protocol engine:
// AssetInliner (spec.md §4.5) and DomChangeDetector (spec.md §4.6).
//
// Uses a document-order subtree traversal shape, adapted to spec.md's
// asset-rewrite and mutation-batching semantics.
package recorder

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dnorman/domcorder/pkg/domtree"
	"github.com/dnorman/domcorder/pkg/nodeid"
	"github.com/dnorman/domcorder/pkg/vdom"
)

// urlBearingAttrs lists element attributes AssetInliner rewrites
// unconditionally (spec.md §4.5). "href" is handled separately since it is
// only meaningful on <link>; "srcset" is handled separately as a composite.
var urlBearingAttrs = map[string]bool{
	"src":        true,
	"poster":     true,
	"data-src":   true,
	"xlink:href": true,
}

var rawCSSURLPattern = regexp.MustCompile(`url\(\s*['"]?([^'"\)]+)['"]?\s*\)`)

// Inliner is AssetInliner. One Inliner is shared across a whole recording
// session so that identical URLs are assigned the same AssetId throughout
// (spec.md §8 property / scenario d).
type Inliner struct {
	mu      sync.Mutex
	nextID  int64
	urlToID map[string]int64
}

// NewInliner creates an empty Inliner.
func NewInliner() *Inliner {
	return &Inliner{urlToID: make(map[string]int64)}
}

// assetID returns the stable id for url, assigning a fresh one on first
// sight. isNew reports whether this call created the assignment.
func (in *Inliner) assetID(url string) (id int64, isNew bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.urlToID[url]; ok {
		return id, false
	}
	id = in.nextID
	in.nextID++
	in.urlToID[url] = id
	return id, true
}

// Inline walks root in document order, assigning node ids via ids and
// rewriting every URL-bearing position to asset:<id>. It returns the
// virtual description and the distinct asset ids referenced by the
// subtree, in first-seen document order (spec.md §4.5).
func (in *Inliner) Inline(root *domtree.Node, ids *nodeid.Map) (*vdom.VNode, []int64) {
	var collected []int64
	seen := map[int64]bool{}
	collect := func(id int64) {
		if !seen[id] {
			seen[id] = true
			collected = append(collected, id)
		}
	}
	vn := in.inlineNode(root, ids, collect)
	return vn, collected
}

func (in *Inliner) inlineNode(n *domtree.Node, ids *nodeid.Map, collect func(int64)) *vdom.VNode {
	id := vdom.NodeID(ids.AssignIfAbsent(n))

	switch n.Kind {
	case domtree.KindText:
		return vdom.Text(id, n.Data)
	case domtree.KindCData:
		return vdom.CData(id, n.Data)
	case domtree.KindComment:
		return vdom.Comment(id, n.Data)
	case domtree.KindElement:
		return in.inlineElement(n, id, ids, collect)
	default:
		// Document-shaped nodes (e.g. a shadow root) have no standalone
		// VNode representation; callers only reach here via Shadow, which
		// is flattened to its children below.
		return nil
	}
}

func (in *Inliner) inlineElement(n *domtree.Node, id vdom.NodeID, ids *nodeid.Map, collect func(int64)) *vdom.VNode {
	attrs := make(map[string]string, len(n.Attrs))
	for k, v := range n.Attrs {
		attrs[k] = v
	}

	switch strings.ToLower(n.Tag) {
	case "script":
		// spec.md §4.5 / §9: scripts are never replayed. Text is emptied
		// and no source URL is collected, even if src is present.
		return &vdom.VNode{Kind: vdom.KindElement, ID: id, Tag: n.Tag, Namespace: n.Namespace, Attrs: attrs}
	case "link":
		// No fetch capability in this headless engine: a stylesheet link
		// is preserved as-is rather than inlined, per spec.md §4.5's
		// fallback branch for a non-fetchable sheet.
	default:
		for attrName := range attrs {
			lower := strings.ToLower(attrName)
			if urlBearingAttrs[lower] {
				in.rewriteSimpleAttr(attrs, attrName, collect)
			}
		}
		if srcset, ok := attrs["srcset"]; ok {
			attrs["srcset"] = in.rewriteSrcset(srcset, collect)
		}
		if style, ok := attrs["style"]; ok {
			attrs["style"] = in.rewriteCSS(style, collect)
		}
	}

	vn := &vdom.VNode{Kind: vdom.KindElement, ID: id, Tag: n.Tag, Namespace: n.Namespace, Attrs: attrs}

	if strings.ToLower(n.Tag) == "style" {
		vn.Children = []*vdom.VNode{in.inlineStyleText(n, ids, collect)}
	} else {
		for _, c := range n.Children {
			if cv := in.inlineNode(c, ids, collect); cv != nil {
				vn.Children = append(vn.Children, cv)
			}
		}
	}

	if n.Shadow != nil {
		for _, c := range n.Shadow.Children {
			if cv := in.inlineNode(c, ids, collect); cv != nil {
				vn.Shadow = append(vn.Shadow, cv)
			}
		}
	}

	return vn
}

// inlineStyleText collects a <style> element's text children into a single
// rewritten text VNode carrying the element's first child's id when that
// child is a text node (id 0 otherwise, e.g. for an empty style element).
func (in *Inliner) inlineStyleText(styleEl *domtree.Node, ids *nodeid.Map, collect func(int64)) *vdom.VNode {
	var sb strings.Builder
	var textID vdom.NodeID
	for i, c := range styleEl.Children {
		if c.Kind == domtree.KindText {
			sb.WriteString(c.Data)
			if i == 0 {
				textID = vdom.NodeID(ids.AssignIfAbsent(c))
			}
		}
	}
	return vdom.Text(textID, in.rewriteCSS(sb.String(), collect))
}

func (in *Inliner) rewriteSimpleAttr(attrs map[string]string, name string, collect func(int64)) {
	url := attrs[name]
	if url == "" || strings.HasPrefix(url, "data:") || strings.HasPrefix(url, "asset:") {
		return
	}
	id, _ := in.assetID(url)
	collect(id)
	attrs[name] = "asset:" + strconv.FormatInt(id, 10)
}

func (in *Inliner) rewriteSrcset(value string, collect func(int64)) string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.Fields(p)
		url := fields[0]
		if !strings.HasPrefix(url, "data:") && !strings.HasPrefix(url, "asset:") {
			id, _ := in.assetID(url)
			collect(id)
			url = "asset:" + strconv.FormatInt(id, 10)
		}
		if len(fields) > 1 {
			out = append(out, url+" "+strings.Join(fields[1:], " "))
		} else {
			out = append(out, url)
		}
	}
	return strings.Join(out, ", ")
}

// rewriteCSS rewrites every url(...) occurrence in css whose reference is
// neither a data: URI nor already an asset: reference, per spec.md §4.5's
// match rule.
func (in *Inliner) rewriteCSS(css string, collect func(int64)) string {
	return rawCSSURLPattern.ReplaceAllStringFunc(css, func(full string) string {
		m := rawCSSURLPattern.FindStringSubmatch(full)
		ref := m[1]
		if strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "asset:") {
			return full
		}
		id, _ := in.assetID(ref)
		collect(id)
		return `url("asset:` + strconv.FormatInt(id, 10) + `")`
	})
}
