// Package realm holds the read-mostly directory data of the auth server:
// the client build table and the cached realm list.
package realm

import (
	"fmt"

	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/model"
)

// BuildTable is the immutable set of client builds known to the server.
// Build it once at startup with NewBuildTable; it is safe for concurrent reads.
type BuildTable struct {
	builds map[uint32]model.RealmBuildInfo
}

// NewBuildTable indexes infos by build number. Duplicate builds are an error.
func NewBuildTable(infos []model.RealmBuildInfo) (*BuildTable, error) {
	t := &BuildTable{builds: make(map[uint32]model.RealmBuildInfo, len(infos))}
	for _, info := range infos {
		if _, dup := t.builds[info.Build]; dup {
			return nil, fmt.Errorf("duplicate build %d in build table", info.Build)
		}
		t.builds[info.Build] = info
	}
	return t, nil
}

// IsAcceptedClientBuild reports whether clients of this build may log in.
func (t *BuildTable) IsAcceptedClientBuild(build uint32) bool {
	_, ok := t.builds[build]
	return ok
}

// GetBuildInfo returns the record for build, or nil.
func (t *BuildTable) GetBuildInfo(build uint32) *model.RealmBuildInfo {
	info, ok := t.builds[build]
	if !ok {
		return nil
	}
	return &info
}

// ExpansionFlags classifies a client build: post-expansion when the build is
// accepted with major version >= 2, pre-expansion when accepted and older,
// none when the build is unknown.
func (t *BuildTable) ExpansionFlags(build uint32) uint8 {
	info, ok := t.builds[build]
	switch {
	case !ok:
		return constants.ExpansionNone
	case info.Major >= constants.PostExpansionMajor:
		return constants.ExpansionPost
	default:
		return constants.ExpansionPre
	}
}

// Len returns the number of known builds.
func (t *BuildTable) Len() int {
	return len(t.builds)
}
