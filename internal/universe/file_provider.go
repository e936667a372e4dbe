// Package universe loads sector universes from a static YAML or JSON file.
package universe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/models"
	"gopkg.in/yaml.v3"
)

// FileProvider serves GetSectorStocks from a file loaded once at startup.
//
// The file maps sector names to market-cap buckets. Bucket entries are either bare
// symbols or mappings:
//
//	Technology:
//	  large: [AAPL, MSFT]
//	  mid:
//	    - symbol: DDOG
//	      name: Datadog
//	      market_cap: 4.1e10
//	  small: []
//
// JSON files with the same shape are accepted since YAML is a superset of JSON.
type FileProvider struct {
	sectors map[string]*models.SectorStocks
	logger  arbor.ILogger
}

var _ interfaces.UniverseProvider = (*FileProvider)(nil)

// LoadFile reads and parses path.
func LoadFile(path string, logger arbor.ILogger) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file %s: %w", path, err)
	}

	p, err := Parse(data, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse universe file %s: %w", path, err)
	}

	logger.Info().
		Str("path", path).
		Int("sectors", len(p.sectors)).
		Msg("Universe file loaded")
	return p, nil
}

// Parse builds a provider from YAML or JSON bytes.
func Parse(data []byte, logger arbor.ILogger) (*FileProvider, error) {
	var raw map[string]sectorEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	sectors := make(map[string]*models.SectorStocks, len(raw))
	for name, entry := range raw {
		key := normalizeSector(name)
		if key == "" {
			continue
		}
		if _, dup := sectors[key]; dup {
			return nil, fmt.Errorf("sector %q defined more than once", name)
		}
		sectors[key] = &models.SectorStocks{
			Large: entry.Large.stocks(),
			Mid:   entry.Mid.stocks(),
			Small: entry.Small.stocks(),
		}
	}
	return &FileProvider{sectors: sectors, logger: logger}, nil
}

// GetSectorStocks returns the sector's universe. Unknown sectors yield an empty
// universe, matching the backend's behavior.
func (p *FileProvider) GetSectorStocks(ctx context.Context, sector string) (*models.SectorStocks, error) {
	stocks, ok := p.sectors[normalizeSector(sector)]
	if !ok {
		p.logger.Debug().Str("sector", sector).Msg("Sector not present in universe file")
		return &models.SectorStocks{}, nil
	}

	// Copy so callers cannot mutate the loaded universe.
	out := &models.SectorStocks{
		Large: append([]models.UniverseStock(nil), stocks.Large...),
		Mid:   append([]models.UniverseStock(nil), stocks.Mid...),
		Small: append([]models.UniverseStock(nil), stocks.Small...),
	}
	return out, nil
}

// Sectors returns the number of sectors loaded.
func (p *FileProvider) Sectors() int {
	return len(p.sectors)
}

func normalizeSector(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type sectorEntry struct {
	Large bucket `yaml:"large"`
	Mid   bucket `yaml:"mid"`
	Small bucket `yaml:"small"`
}

type bucket []stockEntry

func (b bucket) stocks() []models.UniverseStock {
	out := make([]models.UniverseStock, 0, len(b))
	for _, e := range b {
		out = append(out, models.UniverseStock(e))
	}
	return out
}

type stockEntry models.UniverseStock

// UnmarshalYAML accepts either a bare symbol or a mapping.
func (e *stockEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Symbol = node.Value
		return nil
	}
	var full struct {
		Symbol    string   `yaml:"symbol"`
		Name      string   `yaml:"name"`
		MarketCap *float64 `yaml:"market_cap"`
	}
	if err := node.Decode(&full); err != nil {
		return err
	}
	if full.Symbol == "" {
		return fmt.Errorf("line %d: stock entry without symbol", node.Line)
	}
	*e = stockEntry{Symbol: full.Symbol, Name: full.Name, MarketCap: full.MarketCap}
	return nil
}
