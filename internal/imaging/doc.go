// Package imaging turns raw sheet scans into the binary ink mask consumed by
// bubble detection, and renders debug overlays for threshold tuning.
//
// # Preprocessing
//
// Preprocess runs a fixed front end: grayscale conversion, optional
// downscaling of oversized scans, optional Gaussian smoothing, global
// binarization at the Otsu-selected luminance level, and small-blob speckle
// removal. The output BinaryMask is the only representation of the image the
// rest of the pipeline sees; the source image is never modified.
//
// Global thresholding is deliberate: a bubble sheet is a bimodal document
// (dark ink on a light page), where Otsu's between-class variance criterion
// lands reliably in the valley between the two populations. Uneven lighting
// is absorbed by the Gaussian blur and by the fill-ratio semantics
// downstream, which compare dark counts within a bubble rather than absolute
// intensities.
//
// # Coordinate System
//
// All coordinates are 0-based with origin at the top-left corner, X
// increasing rightward and Y downward, matching the standard Go image
// convention.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Preprocess and RenderOverlay are
// pure functions and may be called concurrently on different images.
package imaging
