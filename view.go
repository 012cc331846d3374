package protectimg

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// RenderHTML writes the container as HTML: the surface (as a PNG data URL),
// the protected node when one is attached, and the active overlay if any.
func (c *Controller) RenderHTML(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, err := EncodePNGDataURL(c.surface)
	if err != nil {
		return fmt.Errorf("encode surface: %w", err)
	}
	setAttr(c.surfaceEl, "src", src)
	if c.state.Result == ResultProtectedNode {
		setAttr(c.surfaceEl, "alt", "")
	} else {
		setAttr(c.surfaceEl, "alt", c.req.Alt)
	}

	return html.Render(w, c.container)
}

// ContainerChildren counts the nodes currently attached to the container.
func (c *Controller) ContainerChildren() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for child := c.container.FirstChild; child != nil; child = child.NextSibling {
		n++
	}
	return n
}
