package protectimg

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FitMode controls how the fallback image fills its box.
type FitMode string

const (
	FitCover   FitMode = "cover"
	FitContain FitMode = "contain"
)

// FitModeFromHint derives the fit mode from an opaque layout hint. Hints that
// mention "contain" fit the box; everything else fills it.
func FitModeFromHint(hint string) FitMode {
	if strings.Contains(strings.ToLower(hint), "contain") {
		return FitContain
	}
	return FitCover
}

const (
	noSelectStyle   = "user-select:none;-webkit-user-select:none;"
	protectedBoxCSS = "position:absolute;inset:0;width:100%;height:100%;" + noSelectStyle
	containerCSS    = "position:relative;overflow:hidden;" + noSelectStyle
)

// ProtectedNode is the opaque element shown when pixel access was refused.
// Callers can inspect it but only the controller attaches or detaches it.
type ProtectedNode struct {
	node *html.Node
	img  *html.Node
	src  string
	alt  string
	fit  FitMode
}

func newProtectedNode(src, alt, layoutHint string) *ProtectedNode {
	fit := FitModeFromHint(layoutHint)

	imgClass := "protected-image-content"
	if hint := strings.TrimSpace(layoutHint); hint != "" {
		imgClass += " " + hint
	}

	img := element(atom.Img,
		attr("src", src),
		attr("alt", alt),
		attr("class", imgClass),
		attr("draggable", "false"),
		attr("style", "display:block;width:100%;height:100%;object-fit:"+string(fit)+";"+
			"pointer-events:none;"+noSelectStyle+"-webkit-user-drag:none;-webkit-touch-callout:none;"),
	)
	box := element(atom.Div,
		attr("class", "protected-image"),
		attr("style", protectedBoxCSS),
	)
	box.AppendChild(img)

	return &ProtectedNode{node: box, img: img, src: src, alt: alt, fit: fit}
}

// Src is the URL the node displays.
func (n *ProtectedNode) Src() string { return n.src }

// Alt is the accessible text carried by the image.
func (n *ProtectedNode) Alt() string { return n.alt }

// Fit is the object-fit mode applied to the image.
func (n *ProtectedNode) Fit() FitMode { return n.fit }

// Attached reports whether the node is currently part of a container.
func (n *ProtectedNode) Attached() bool { return n.node.Parent != nil }

// Attr returns the value of an attribute on the inner image element.
func (n *ProtectedNode) Attr(key string) (string, bool) {
	return attrValue(n.img, key)
}

func (n *ProtectedNode) detach() {
	if n.node.Parent != nil {
		n.node.Parent.RemoveChild(n.node)
	}
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, attr(key, val))
}
