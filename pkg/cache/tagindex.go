package cache

import "sync"

// tagIndex is an in-process map of tag -> keys with a reverse index
// for cleanup. Providers whose backing store has no server-side set
// structures (memcache) use it to honor DeleteByTag for the keys this
// instance wrote.
type tagIndex struct {
	mu      sync.Mutex
	tagKeys map[string]map[string]struct{}
	keyTags map[string][]string
}

func newTagIndex() *tagIndex {
	return &tagIndex{
		tagKeys: make(map[string]map[string]struct{}),
		keyTags: make(map[string][]string),
	}
}

// add records the key under each tag, replacing any previous tags for
// that key.
func (ti *tagIndex) add(key string, tags []string) {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	ti.untrackLocked(key)
	for _, tag := range tags {
		keys, ok := ti.tagKeys[tag]
		if !ok {
			keys = make(map[string]struct{})
			ti.tagKeys[tag] = keys
		}
		keys[key] = struct{}{}
	}
	ti.keyTags[key] = append([]string(nil), tags...)
}

// remove drops a single key from the index.
func (ti *tagIndex) remove(key string) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.untrackLocked(key)
}

// take returns the keys recorded under the tag and removes them from
// the index.
func (ti *tagIndex) take(tag string) []string {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	keys := make([]string, 0, len(ti.tagKeys[tag]))
	for key := range ti.tagKeys[tag] {
		keys = append(keys, key)
	}
	for _, key := range keys {
		ti.untrackLocked(key)
	}
	return keys
}

// reset clears the whole index.
func (ti *tagIndex) reset() {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.tagKeys = make(map[string]map[string]struct{})
	ti.keyTags = make(map[string][]string)
}

// size reports the number of live tags.
func (ti *tagIndex) size() int {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return len(ti.tagKeys)
}

// untrackLocked drops a key from both maps. Caller holds mu.
func (ti *tagIndex) untrackLocked(key string) {
	for _, tag := range ti.keyTags[key] {
		delete(ti.tagKeys[tag], key)
		if len(ti.tagKeys[tag]) == 0 {
			delete(ti.tagKeys, tag)
		}
	}
	delete(ti.keyTags, key)
}
