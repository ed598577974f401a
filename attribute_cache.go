package selector

// attributeCache memoizes the coerced value of one attribute key across all
// agents. A rule tree broadcast over many teams reads the same column once
// per team; the cache coerces it once.
//
// Coercion errors are cached too, so a bad value is reported the same way on
// every lookup.
type attributeCache struct {
	agents []Agent

	columns map[string][]float64
	errs    map[string]error
	calls   int
	hits    int
}

func newAttributeCache(agents []Agent) *attributeCache {
	return &attributeCache{
		agents:  agents,
		columns: make(map[string][]float64),
		errs:    make(map[string]error),
	}
}

// column returns Coerce(key, attr) for every agent, in agent order.
func (c *attributeCache) column(key string) ([]float64, error) {
	c.calls++

	if col, ok := c.columns[key]; ok {
		c.hits++
		return col, nil
	}
	if err, ok := c.errs[key]; ok {
		c.hits++
		return nil, err
	}

	col := make([]float64, len(c.agents))
	for i, agent := range c.agents {
		v, err := Coerce(key, agent.Attribute(key))
		if err != nil {
			c.errs[key] = err
			return nil, err
		}
		col[i] = v
	}
	c.columns[key] = col
	return col, nil
}

// CacheStats reports how often coerced attribute columns were reused.
type CacheStats struct {
	Calls   int
	Hits    int
	Columns int
	HitRate float64
}

func (c *attributeCache) stats() CacheStats {
	stats := CacheStats{
		Calls:   c.calls,
		Hits:    c.hits,
		Columns: len(c.columns),
	}
	if stats.Calls > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Calls)
	}
	return stats
}
