package cfg

type Cfg struct {
	// Apify configuration
	ApifyToken   string
	ApifyBaseUrl string
	ActorID      string

	// Application configuration
	DataDir    string
	DBPath     string
	PresetsDir string
	Port       string
	BaseUrl    string

	WorkerCount int

	// Dataset fetch policy
	DatasetMaxAttempts int
	DatasetRetryDelay  int // seconds

	// Media download policy
	MediaConcurrency int
	MediaMaxItems    int
	MediaRetries     int
	MediaTimeout     int // seconds, per request

	// Build gating
	BuildWaitTimeout int // seconds

	// Text generation
	LLMAPIKey  string
	LLMBaseUrl string
	LLMModel   string

	// Application metadata
	APIAccessKey string
	UserAgent    string
	Timezone     string
	Debug        bool
	Version      string
}
