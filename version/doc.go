// Package version exposes the library's build version, embedded at build
// time via -ldflags and supplemented from Go build info when available.
package version
