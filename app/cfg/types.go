package cfg

type Cfg struct {
	// Storage configuration
	DataDir    string
	DBPath     string
	FormatsDir string
	FontPath   string

	// Application configuration
	Port            string
	BaseUrl         string
	WorkerCount     int
	CleanupInterval int
	ComposeTimeout  int
	MaxUploadMB     int
	MaxArticles     int
	SessionTTLHours int
	APIAccessKey    string

	// AI extractor configuration
	OpenRouterAPIKey  string
	OpenRouterBaseUrl string
	AIModel           string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
