package calendar

// Instrument is one catalog member: an indicator series or an equity ticker.
// Aliases maps a provider name to that provider's own code for the instrument.
type Instrument struct {
	Key      string            `yaml:"key" json:"key"`
	Title    string            `yaml:"title" json:"title"`
	Country  string            `yaml:"country" json:"country,omitempty"`
	Currency string            `yaml:"currency" json:"currency,omitempty"`
	Aliases  map[string]string `yaml:"aliases" json:"aliases,omitempty"`
}

// Alias returns the provider-specific code, falling back to Key
func (i Instrument) Alias(provider string) string {
	if code, ok := i.Aliases[provider]; ok && code != "" {
		return code
	}
	return i.Key
}
