package tracelog

import (
	"fmt"
	"strings"
)

// Open builds a store from a sink description:
//
//	memory
//	sqlite:<path>
//	jsonl:<path>
//	redis:<addr>
//
// An empty description opens a memory store.
func Open(sink string) (Store, error) {
	kind, arg, _ := strings.Cut(sink, ":")
	switch strings.ToLower(kind) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if arg == "" {
			return nil, fmt.Errorf("trace sink %q: sqlite needs a path", sink)
		}
		return NewSQLiteStore(arg)
	case "jsonl":
		if arg == "" {
			return nil, fmt.Errorf("trace sink %q: jsonl needs a path", sink)
		}
		return NewJSONLStore(arg)
	case "redis":
		if arg == "" {
			return nil, fmt.Errorf("trace sink %q: redis needs an address", sink)
		}
		return NewRedisStore(arg, "", 0), nil
	default:
		return nil, fmt.Errorf("trace sink %q: unknown kind %q", sink, kind)
	}
}
