package memberships

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FeaturesKind tells which shape a Features value was decoded from.
type FeaturesKind int

const (
	StringList FeaturesKind = iota
	KeyedMap
)

func (k FeaturesKind) String() string {
	if k == KeyedMap {
		return "keyed_map"
	}
	return "string_list"
}

// Features lists what a membership plan includes. Stored payloads come in
// several shapes: a JSON array, a JSON-encoded string holding an array or
// object, a comma separated string, or an object of flags. The shape is
// resolved once when decoding.
type Features struct {
	kind  FeaturesKind
	list  []string
	keyed map[string]bool
}

// NewStringList builds list-shaped features.
func NewStringList(items ...string) Features {
	return Features{kind: StringList, list: cleanList(items)}
}

// NewKeyedMap builds flag-shaped features.
func NewKeyedMap(flags map[string]bool) Features {
	keyed := make(map[string]bool, len(flags))
	for k, v := range flags {
		if k = strings.TrimSpace(k); k != "" {
			keyed[k] = v
		}
	}
	return Features{kind: KeyedMap, keyed: keyed}
}

// ParseFeatures decodes a stored payload. Empty input yields an empty list.
func ParseFeatures(raw []byte) (Features, error) {
	var f Features
	if err := f.UnmarshalJSON(raw); err != nil {
		return Features{}, err
	}
	return f, nil
}

func (f Features) Kind() FeaturesKind { return f.kind }

// Has reports whether the feature is included.
func (f Features) Has(key string) bool {
	key = strings.TrimSpace(key)
	if f.kind == KeyedMap {
		return f.keyed[key]
	}
	for _, item := range f.list {
		if item == key {
			return true
		}
	}
	return false
}

// List returns the included features; keyed flags are returned sorted.
func (f Features) List() []string {
	if f.kind == KeyedMap {
		out := make([]string, 0, len(f.keyed))
		for k, v := range f.keyed {
			if v {
				out = append(out, k)
			}
		}
		sort.Strings(out)
		return out
	}
	out := make([]string, len(f.list))
	copy(out, f.list)
	return out
}

func (f Features) MarshalJSON() ([]byte, error) {
	if f.kind == KeyedMap {
		if f.keyed == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(f.keyed)
	}
	if f.list == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f.list)
}

func (f *Features) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = NewStringList()
		return nil
	}

	switch data[0] {
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("features: %w", err)
		}
		*f = NewStringList(items...)
		return nil

	case '{':
		var flags map[string]interface{}
		if err := json.Unmarshal(data, &flags); err != nil {
			return fmt.Errorf("features: %w", err)
		}
		keyed := make(map[string]bool, len(flags))
		for k, v := range flags {
			keyed[k] = truthy(v)
		}
		*f = NewKeyedMap(keyed)
		return nil

	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("features: %w", err)
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
			return f.UnmarshalJSON([]byte(s))
		}
		*f = NewStringList(strings.Split(s, ",")...)
		return nil
	}
	return fmt.Errorf("features: unsupported payload %q", truncate(string(data), 32))
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		t = strings.ToLower(strings.TrimSpace(t))
		return t != "" && t != "0" && t != "false" && t != "no"
	case nil:
		return false
	}
	return true
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
