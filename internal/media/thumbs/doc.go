// Package thumbs extracts still-image thumbnails from media files through
// the bounded tool pools, writing artifacts into the resource cache.
package thumbs
