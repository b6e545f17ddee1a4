package presets

// Preset defines the actor input policy for one kind of scrape. The
// name is derived from the file name (presets/<name>.yml).
type Preset struct {
	Name           string `yaml:"-"`
	ResultsType    string `yaml:"results_type"`
	ResultsLimit   int    `yaml:"results_limit"`
	ScrapeComments bool   `yaml:"scrape_comments"`
}

// RunInput builds the actor input for a profile URL under this preset.
func (p *Preset) RunInput(profileURL string) map[string]interface{} {
	return map[string]interface{}{
		"directUrls":     []string{profileURL},
		"resultsType":    p.ResultsType,
		"resultsLimit":   p.ResultsLimit,
		"scrapeComments": p.ScrapeComments,
	}
}
