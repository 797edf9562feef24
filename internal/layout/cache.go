package layout

import (
	"fortio.org/safecast"

	"typelib/internal/typeerr"
	"typelib/internal/types"
)

// staticInfo is what the engine remembers per descriptor.
type staticInfo struct {
	fixed bool
	size  int
	err   error // set when the static size does not fit an int
}

type cache struct {
	byType map[*types.Type]staticInfo
}

func newCache() *cache {
	return &cache{byType: make(map[*types.Type]staticInfo, 64)}
}

func (c *cache) get(t *types.Type) staticInfo {
	if info, ok := c.byType[t]; ok {
		return info
	}
	info := staticInfo{fixed: t.FixedBufferSize()}
	size, err := safecast.Conv[int](t.Size())
	if err != nil {
		info.err = typeerr.Overflow(t.Name(), err)
	}
	info.size = size
	c.byType[t] = info
	return info
}

func (c *cache) reset() {
	clear(c.byType)
}
