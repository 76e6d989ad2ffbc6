// Package imaging provides the image value helpers used by the editor.
//
// The editor works on *image.NRGBA values that are treated as immutable
// snapshots: nothing in this package writes into an image it is given, every
// transformation returns a new value.
//
// # Loading
//
// Load decodes PNG, JPEG, GIF, BMP and TIFF through the disintegration/imaging
// decoders (with EXIF auto-orientation) plus binary PPM (P6) and PFM images
// registered by this package. Other extensions on the editor's allow-list
// (EXR, HDR, PIC, TGA, PSD) are accepted by directory expansion but fail to
// decode, which the editor reports as a failed load.
//
// # Saving
//
// Save applies a gain, then either the sRGB transfer curve or a plain gamma,
// optionally dithers, quantizes to 8 bits and encodes by file extension.
// With SaveOptions{Gain: 1, Gamma: 1} the stored pixels are written unchanged.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner.
// Regions are half-open: (X1,Y1) inclusive, (X2,Y2) exclusive.
//
// # Color Representation
//
// Sampled colors are reported as hex, RGBA and HSL. The HSL conversion is
// done with go-colorful.
package imaging
