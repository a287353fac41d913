// Command nestling uploads photos to the family album backend. It converts
// picked images to upload-ready JPEGs, mints one-time upload slots, streams
// the bytes to storage, and commits the resulting media records, with a
// persistent retry queue for anything that fails along the way.
package main
