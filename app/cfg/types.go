package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Ingestion configuration
	SourcesDir        string
	WorkerCount       int
	SchedulerInterval int
	SummaryThreshold  float64

	// LLM configuration
	DeepSeekAPIKey   string
	DeepSeekEndpoint string
	DeepSeekModel    string

	// HTTP configuration
	Port         string
	CronSecret   string
	APIAccessKey string

	// Notifications
	SlackWebhookURL string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
