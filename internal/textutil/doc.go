// Package textutil provides text processing utilities for filename
// sanitization, display labels, and user-facing error messages.
//
// Upload filenames are normalized to a conservative character set so the
// backend and the blob store never see platform-specific path oddities, and
// error text shown to users is scrubbed of raw payloads such as data URIs.
package textutil
