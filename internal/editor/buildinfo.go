package editor

import (
    "runtime/debug"
)

// Build information populated via -ldflags at build time. Version fills the
// gaps from the module build info when the flags were not set.
var (
    BuildVersion = "0.0.0-dev"
    BuildCommit  = "unknown"
    BuildDate    = "unknown"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Version returns the version, commit and build date of the binary.
func Version() (version, commit, date string) {
    version, commit, date = BuildVersion, BuildCommit, BuildDate
    info, ok := readBuildInfo()
    if !ok {
        return
    }
    if version == "0.0.0-dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
        version = info.Main.Version
    }
    for _, s := range info.Settings {
        switch s.Key {
        case "vcs.revision":
            if commit == "unknown" && s.Value != "" {
                commit = s.Value
                if len(commit) > 12 {
                    commit = commit[:12]
                }
            }
        case "vcs.time":
            if date == "unknown" && s.Value != "" {
                date = s.Value
            }
        }
    }
    return
}
