package protocol

import "strings"

// Flags selects which identity headers a profile injects.
type Flags uint8

const (
	UnityAgent Flags = 1 << iota
	AppVersion
	RequestID
	BSGSession
	BSGAgent
)

// DefaultFlags is the in-game client header set.
const DefaultFlags = UnityAgent | AppVersion | RequestID | BSGSession

// LauncherFlags is the launcher header set.
const LauncherFlags = BSGAgent

var flagNames = []struct {
	flag Flags
	name string
}{
	{UnityAgent, "unityAgent"},
	{AppVersion, "appVersion"},
	{RequestID, "requestId"},
	{BSGSession, "bsgSession"},
	{BSGAgent, "bsgAgent"},
}

// Has reports whether every bit of o is set in f.
func (f Flags) Has(o Flags) bool {
	return f&o == o
}

// Validate rejects flag combinations no profile may carry.
// Both agent flags target User-Agent, so enabling both is a configuration error.
func (f Flags) Validate() error {
	if f.Has(BSGAgent | UnityAgent) {
		return ErrConflictingAgents
	}
	return nil
}

// String returns the enabled flag names joined by "|".
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}
