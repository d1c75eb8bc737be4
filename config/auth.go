package config

// AuthConfig carries the shared secrets injected at deploy time. None
// of these ever appear as source literals; an empty value disables the
// corresponding check, which is only acceptable in development.
type AuthConfig struct {
	// APIKey is expected in the X-API-Key header of mobile requests.
	APIKey string `json:"api_key"`
	// MobileSecret is expected in the X-Mobile-Secret header of mobile
	// requests.
	MobileSecret string `json:"mobile_secret"`
	// AdminToken protects the audit trail endpoints as a bearer token.
	AdminToken string `json:"admin_token"`
}
