// Package protectimg renders remote images behind a copy-resistant surface.
//
// An image is first fetched in cross-origin mode and, when the serving host
// grants pixel access, painted onto an RGBA surface with a tiled, rotated text
// watermark. Hosts that refuse pixel access get a second, plain fetch whose
// result is only exposed as an opaque HTML node with pointer events, selection
// and the save affordance disabled. That fallback carries no watermark.
//
// A Controller drives the whole exchange for one display slot and discards any
// result that belongs to a request which has since been replaced or closed.
package protectimg
