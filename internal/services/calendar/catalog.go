package calendar

import (
	_ "embed"
	"iter"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
)

//go:embed catalog_default.yaml
var defaultCatalogYAML []byte

// Catalog is an ordered, immutable list of instruments to track
type Catalog struct {
	instruments []calendar.Instrument
}

// NewCatalog sorts instruments by key and drops duplicate keys, keeping the first
func NewCatalog(instruments []calendar.Instrument) *Catalog {
	seen := make(map[string]struct{}, len(instruments))
	list := make([]calendar.Instrument, 0, len(instruments))
	for _, inst := range instruments {
		inst.Key = strings.TrimSpace(inst.Key)
		if inst.Key == "" {
			continue
		}
		if _, dup := seen[inst.Key]; dup {
			continue
		}
		seen[inst.Key] = struct{}{}
		list = append(list, inst)
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return &Catalog{instruments: list}
}

// Len returns the number of instruments
func (c *Catalog) Len() int {
	return len(c.instruments)
}

// Instruments returns a copy of the ordered instrument list
func (c *Catalog) Instruments() []calendar.Instrument {
	out := make([]calendar.Instrument, len(c.instruments))
	copy(out, c.instruments)
	return out
}

// Lookup finds an instrument by key
func (c *Catalog) Lookup(key string) (calendar.Instrument, bool) {
	i := sort.Search(len(c.instruments), func(i int) bool { return c.instruments[i].Key >= key })
	if i < len(c.instruments) && c.instruments[i].Key == key {
		return c.instruments[i], true
	}
	return calendar.Instrument{}, false
}

// Chunks yields consecutive batches of at most size instruments with their batch index.
// Order is deterministic so a batch can be replayed.
func (c *Catalog) Chunks(size int) iter.Seq2[int, []calendar.Instrument] {
	if size <= 0 {
		size = len(c.instruments)
	}
	return func(yield func(int, []calendar.Instrument) bool) {
		for i, start := 0, 0; start < len(c.instruments); i, start = i+1, start+size {
			end := min(start+size, len(c.instruments))
			if !yield(i, c.instruments[start:end:end]) {
				return
			}
		}
	}
}

// ChunkCount returns how many batches Chunks(size) yields
func (c *Catalog) ChunkCount(size int) int {
	if len(c.instruments) == 0 {
		return 0
	}
	if size <= 0 {
		return 1
	}
	return (len(c.instruments) + size - 1) / size
}

// Catalogs holds one catalog per event kind
type Catalogs struct {
	Indicators *Catalog
	Earnings   *Catalog
}

// For returns the catalog for kind
func (c Catalogs) For(kind calendar.Kind) *Catalog {
	if kind == calendar.KindEarningsReport {
		return c.Earnings
	}
	return c.Indicators
}

type catalogFile struct {
	Indicators []calendar.Instrument `yaml:"indicators"`
	Earnings   []calendar.Instrument `yaml:"earnings"`
}

// LoadCatalogs reads catalogs from a YAML file, or the embedded default when path is empty
func LoadCatalogs(path string) (Catalogs, error) {
	data := defaultCatalogYAML
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Catalogs{}, errors.Wrapf(err, "read catalog %s", path)
		}
		data = raw
	}
	return ParseCatalogs(data)
}

// ParseCatalogs decodes catalog YAML
func ParseCatalogs(data []byte) (Catalogs, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalogs{}, errors.Wrap(errors.ErrInvalidInput, "parse catalog: "+err.Error())
	}
	return Catalogs{
		Indicators: NewCatalog(file.Indicators),
		Earnings:   NewCatalog(file.Earnings),
	}, nil
}
