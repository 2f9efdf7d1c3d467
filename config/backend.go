package config

import "strings"

// Backend names the data source the process runs against.
type Backend string

const (
	BackendRemote Backend = "remote"
	BackendMemory Backend = "memory"
)

func (b Backend) String() string {
	return string(b)
}

const (
	KeySupabaseURL     = "SUPABASE_URL"
	KeySupabaseAnonKey = "SUPABASE_ANON_KEY"
)

var placeholderMarkers = []string{
	"your-project-id",
	"your-anon-key",
	"your_supabase",
	"<",
}

// ResolveBackend picks the remote store only when both the Supabase URL and
// anon key are present and neither still carries a template placeholder.
// It is decided once at startup and never re-evaluated.
func ResolveBackend(cfg map[string]string) Backend {
	url := strings.TrimSpace(GetString(cfg, KeySupabaseURL, ""))
	key := strings.TrimSpace(GetString(cfg, KeySupabaseAnonKey, ""))
	if IsPlaceholder(url) || IsPlaceholder(key) {
		return BackendMemory
	}
	return BackendRemote
}

func IsPlaceholder(value string) bool {
	if value == "" {
		return true
	}
	lower := strings.ToLower(value)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
