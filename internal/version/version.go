package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	Tag      string
	Revision string
	BuildAt  string
	Dirty    bool
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Tag == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Tag = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Revision = setting.Value
		case "vcs.time":
			BuildAt = setting.Value
		case "vcs.modified":
			Dirty = setting.Value == "true"
		}
	}
}

// String describes the build, or "dev" when no VCS info was stamped.
func String() string {
	return format(Tag, Revision, BuildAt, Dirty)
}

func format(tag, revision, buildAt string, dirty bool) string {
	if revision == "" {
		if tag != "" {
			return tag
		}
		return "dev"
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if t, err := time.Parse(time.RFC3339, buildAt); err == nil {
		buildAt = t.Format("2006-01-02 15:04:05")
	}

	s := revision
	if tag != "" {
		s = tag + " " + revision
	}
	if buildAt != "" {
		s = fmt.Sprintf("%s at %s", s, buildAt)
	}
	if dirty {
		s += " dirty"
	}
	return s
}
