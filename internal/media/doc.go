// Package media re-encodes received images and composes session mosaics.
//
// Both pipelines share a JPEG quality ladder: encode at a starting quality,
// measure, and step the quality down until the output fits the configured
// byte budget or the floor is reached, in which case the last attempt is
// kept. The Compressor writes each attempt to its destination; the Composer
// keeps attempts in memory and writes the accepted mosaic once, atomically.
//
// Decoding understands JPEG, PNG, GIF, WebP, and BMP. ExtensionFor maps chat
// MIME types to file extensions for raw media saves.
package media
