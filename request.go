package protectimg

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// cacheBustParam is the query parameter carrying the per-attempt timestamp.
const cacheBustParam = "_t"

// ImageRequest is the immutable input for one display generation.
type ImageRequest struct {
	SourceURL  string
	Alt        string
	LayoutHint string
}

// StampURL returns raw with a cache-defeating _t=<unix millis> parameter. The
// existing query is kept byte for byte apart from a previous _t pair on
// absolute URLs; anything that does not parse as one degrades to plain string
// concatenation.
func StampURL(raw string, now time.Time) string {
	stamp := cacheBustParam + "=" + strconv.FormatInt(now.UnixMilli(), 10)

	if u, err := url.Parse(raw); err == nil && u.IsAbs() && u.Host != "" {
		query := stripParam(u.RawQuery, cacheBustParam)
		if query == "" {
			u.RawQuery = stamp
		} else {
			u.RawQuery = query + "&" + stamp
		}
		u.ForceQuery = false
		return u.String()
	}

	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + stamp
}

// stripParam drops every &-separated token of rawQuery whose key is name.
// Other tokens are not decoded or reordered.
func stripParam(rawQuery, name string) string {
	if rawQuery == "" {
		return ""
	}
	tokens := strings.Split(rawQuery, "&")
	kept := tokens[:0]
	for _, tok := range tokens {
		if tok == name || strings.HasPrefix(tok, name+"=") {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, "&")
}
