package protocol

import (
	"net/http"
	"strconv"
	"strings"
)

// Header names as the backend expects them, byte for byte.
const (
	HeaderContentType  = "Content-Type"
	HeaderCookie       = "Cookie"
	HeaderUserAgent    = "User-Agent"
	HeaderUnityVersion = "X-Unity-Version"
	HeaderAppVersion   = "App-Version"
	HeaderRequestID    = "GClient-RequestId"
)

const contentTypeJSON = "application/json"

// VersionInfo holds the client identity strings sent to the backend.
type VersionInfo struct {
	Launcher string `json:"launcher" yaml:"launcher" toml:"launcher"`
	Game     string `json:"game" yaml:"game" toml:"game"`
	Unity    string `json:"unity" yaml:"unity" toml:"unity"`
	Backend  string `json:"backend" yaml:"backend" toml:"backend"`
}

// Identity is the per-request input of the header rules.
type Identity struct {
	Session  string
	Versions VersionInfo
	// NextRequestID is called at most once per request, and only when the
	// RequestID flag is set.
	NextRequestID func() uint64
}

// HeaderRule sets one or more headers when its flag is enabled.
type HeaderRule struct {
	Name  string
	Flag  Flags
	Apply func(h http.Header, id *Identity)
}

var headerRules = []HeaderRule{
	{
		Name: "bsgSession",
		Flag: BSGSession,
		Apply: func(h http.Header, id *Identity) {
			SetHeader(h, HeaderCookie, "PHPSESSID="+id.Session)
		},
	},
	{
		Name: "bsgAgent",
		Flag: BSGAgent,
		Apply: func(h http.Header, id *Identity) {
			SetHeader(h, HeaderUserAgent, BSGUserAgent(id.Versions.Launcher))
		},
	},
	{
		// Runs after bsgAgent: if both were enabled, the Unity agent wins.
		Name: "unityAgent",
		Flag: UnityAgent,
		Apply: func(h http.Header, id *Identity) {
			SetHeader(h, HeaderUserAgent, UnityUserAgent(id.Versions.Unity))
			SetHeader(h, HeaderUnityVersion, id.Versions.Unity)
		},
	},
	{
		Name: "appVersion",
		Flag: AppVersion,
		Apply: func(h http.Header, id *Identity) {
			SetHeader(h, HeaderAppVersion, "EFT Client "+id.Versions.Game)
		},
	},
	{
		Name: "requestId",
		Flag: RequestID,
		Apply: func(h http.Header, id *Identity) {
			var n uint64
			if id.NextRequestID != nil {
				n = id.NextRequestID()
			}
			SetHeader(h, HeaderRequestID, strconv.FormatUint(n, 10))
		},
	},
}

// HeaderRules returns a copy of the rules in the order ApplyHeaders runs them.
func HeaderRules() []HeaderRule {
	rules := make([]HeaderRule, len(headerRules))
	copy(rules, headerRules)
	return rules
}

// ApplyHeaders rewrites h for an outgoing request.
// Transport defaults for User-Agent and Content-Type are removed first, in
// any letter case, so no case-variant duplicates survive.
func ApplyHeaders(h http.Header, flags Flags, id *Identity) {
	DelHeader(h, HeaderUserAgent)
	DelHeader(h, HeaderContentType)
	SetHeader(h, HeaderContentType, contentTypeJSON)

	for _, rule := range headerRules {
		if flags.Has(rule.Flag) {
			rule.Apply(h, id)
		}
	}
}

// BSGUserAgent is the launcher User-Agent.
func BSGUserAgent(launcherVersion string) string {
	return "BSG Launcher " + launcherVersion
}

// UnityUserAgent is the game client User-Agent.
func UnityUserAgent(unityVersion string) string {
	return "UnityPlayer/" + unityVersion + " (UnityWebRequest/1.0, libcurl/7.52.0-DEV)"
}

// DelHeader removes every key of h equal to name under case folding.
func DelHeader(h http.Header, name string) {
	for k := range h {
		if strings.EqualFold(k, name) {
			delete(h, k)
		}
	}
}

// SetHeader replaces all case variants of name with a single key spelled
// exactly as given. http.Header.Set would canonicalize "GClient-RequestId".
func SetHeader(h http.Header, name, value string) {
	DelHeader(h, name)
	h[name] = []string{value}
}
