// Package convert turns picked images into upload-ready JPEGs in the
// staging directory.
package convert
