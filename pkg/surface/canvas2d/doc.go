// Package canvas2d implements a render.Surface on an HTML canvas element
// through its 2D context. It is only available in js/wasm builds.
package canvas2d
