package asset

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// cssURLPattern matches url(...) references with optional quoting, per
// spec.md §4.5's rewrite rule.
var cssURLPattern = regexp.MustCompile(`url\(\s*['"]?([^'"\)]+)['"]?\s*\)`)

var cssAssetIDPattern = regexp.MustCompile(`^asset:(\d+)$`)

// assetIDsInCSS returns the distinct asset ids referenced by url(asset:<id>)
// occurrences in css, in first-seen order.
func assetIDsInCSS(css string) []ID {
	var ids []ID
	seen := map[ID]bool{}
	for _, m := range cssURLPattern.FindAllStringSubmatch(css, -1) {
		ref := m[1]
		sub := cssAssetIDPattern.FindStringSubmatch(ref)
		if sub == nil {
			continue
		}
		n, err := strconv.ParseInt(sub[1], 10, 64)
		if err != nil {
			continue
		}
		id := ID(n)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// rewriteCSSAssetURL replaces every url(asset:<id>) occurrence for the
// given id with url("resolvedURL") in css, leaving other url(...)
// references untouched.
func rewriteCSSAssetURL(css string, id ID, resolvedURL string) string {
	target := fmt.Sprintf("asset:%d", id)
	return cssURLPattern.ReplaceAllStringFunc(css, func(full string) string {
		m := cssURLPattern.FindStringSubmatch(full)
		if m[1] != target {
			return full
		}
		return fmt.Sprintf(`url("%s")`, resolvedURL)
	})
}

// srcsetCandidate is one comma-separated entry of a srcset attribute:
// a URL token plus an optional trailing descriptor (e.g. "2x", "480w").
type srcsetCandidate struct {
	url        string
	descriptor string
}

func splitSrcset(value string) []srcsetCandidate {
	parts := strings.Split(value, ",")
	out := make([]srcsetCandidate, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.Fields(p)
		c := srcsetCandidate{url: fields[0]}
		if len(fields) > 1 {
			c.descriptor = strings.Join(fields[1:], " ")
		}
		out = append(out, c)
	}
	return out
}

func joinSrcset(candidates []srcsetCandidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.descriptor != "" {
			parts = append(parts, c.url+" "+c.descriptor)
		} else {
			parts = append(parts, c.url)
		}
	}
	return strings.Join(parts, ", ")
}
