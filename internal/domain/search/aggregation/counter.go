package aggregation

import (
	"slices"
	"strconv"
	"strings"
)

const (
	partSeparator  = "|"
	valueSeparator = "##"
	defaultLevel   = 1
)

// Counter is one bucket of an aggregation.
type Counter struct {
	Key    string            `json:"key"`
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Level  int               `json:"level"`
	Values map[string]string `json:"values"`
	Used   bool              `json:"used"`
	Count  int               `json:"n"`
}

// ParseCounter decodes a bucket key. Keys are either plain values or the
// hierarchical encoding "id##1|name##Shoes|level##2". Plain keys become
// id = name = key at level 1. The counter is marked used when its id is one
// of the active filter values. ok is false for keys without an id.
func ParseCounter(key string, count int, active []string) (Counter, bool) {
	values := map[string]string{}
	if strings.Contains(key, valueSeparator) {
		for _, part := range strings.Split(key, partSeparator) {
			k, v, found := strings.Cut(part, valueSeparator)
			if !found {
				continue
			}
			values[k] = v
		}
	} else {
		values["id"] = key
		values["name"] = key
	}

	id := values["id"]
	if id == "" {
		return Counter{}, false
	}

	name := values["name"]
	if name == "" {
		name = id
	}

	level := defaultLevel
	if raw, found := values["level"]; found {
		if n, err := strconv.Atoi(raw); err == nil {
			level = n
		}
	}

	return Counter{
		Key:    key,
		ID:     id,
		Name:   name,
		Level:  level,
		Values: values,
		Used:   slices.Contains(active, id),
		Count:  count,
	}, true
}
