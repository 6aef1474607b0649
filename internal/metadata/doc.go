// Package metadata reads and rewrites the capture metadata of photos.
//
// Editor is the boundary the placement pipeline talks to. The ExifTool
// implementation reads EXIF dates in-process with goexif and performs every
// write through a single long-lived exiftool process, so a batch of
// placements pays the Perl start-up cost once. TimeFromFilename recovers a
// capture time from names such as IMG_20190412_153012.jpg when the EXIF block
// carries none.
package metadata
