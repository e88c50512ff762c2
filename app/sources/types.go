package sources

// Source describes a single news source loaded from a YAML file in the
// sources directory. The file name (without extension) becomes the source
// name unless one is set explicitly.
type Source struct {
	Name         string   `yaml:"name"`
	URL          string   `yaml:"url"`
	Language     string   `yaml:"language"`      // "ja" or "en"
	Weight       float64  `yaml:"weight"`        // source trust constant, [0,1]
	AllowsScrape bool     `yaml:"allows_scrape"` // publisher permits full-page scraping
	Enabled      bool     `yaml:"enabled"`
	MaxItems     int      `yaml:"max_items"`
	Selectors    []string `yaml:"selectors"` // prioritized CSS selectors for article body
}
