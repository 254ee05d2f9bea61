//go:build !linux

package eqcache

import (
	"io/fs"
	"time"
)

// accessTime falls back to mtime on platforms where we do not dig into the
// stat structure. Deployments run on linux; this keeps local builds working.
func accessTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}
