package nanos

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// indexValue returns the numeric value of k if k is an index key: the
// canonical decimal form of a non-negative integer below math.MaxInt, so
// the next index after it is still an int.
func indexValue(k string) (int, bool) {
	if k == "" || (k[0] == '0' && len(k) > 1) {
		return 0, false
	}
	for i := 0; i < len(k); i++ {
		if k[i] < '0' || k[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(k)
	if err != nil || n == math.MaxInt {
		return 0, false
	}
	return n, true
}

// IsIndexKey reports whether k is an index key.
func IsIndexKey(k string) bool {
	_, ok := indexValue(k)
	return ok
}

func indexKey(n int) string {
	return strconv.Itoa(n)
}

// keyString converts an API key into a key string. Negative integers count
// back from next; ok is false when such a key resolves below zero.
func keyString(key any, next int) (k string, ok bool, err error) {
	var n int64
	switch v := key.(type) {
	case string:
		return v, true, nil
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		n = int64(v)
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return "", false, fmt.Errorf("%w: %d out of range", ErrInvalidKey, v)
		}
		n = int64(v)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'g', -1, 64), true, nil
		}
		n = int64(v)
	default:
		return "", false, fmt.Errorf("%w: %T", ErrInvalidKey, key)
	}
	if n < 0 {
		n += int64(next)
		if n < 0 {
			return "", false, nil
		}
	}
	return strconv.FormatInt(n, 10), true, nil
}

// keySeq is the ordered key list of a container. It keeps index keys in
// ascending numeric order and tracks the index high-water mark.
type keySeq struct {
	keys []string
	next int
}

// position returns where a new key k belongs. Append mode picks the latest
// position that keeps index keys ascending, insert mode the earliest.
func (s *keySeq) position(k string, insert bool) int {
	v, isIndex := indexValue(k)
	if !isIndex {
		if insert {
			return 0
		}
		return len(s.keys)
	}
	if insert {
		p := 0
		for i, key := range s.keys {
			if kv, ok := indexValue(key); ok {
				if kv > v {
					break
				}
				p = i + 1
			}
		}
		return p
	}
	if v >= s.next {
		return len(s.keys)
	}
	p := len(s.keys)
	for i := len(s.keys) - 1; i >= 0; i-- {
		if kv, ok := indexValue(s.keys[i]); ok {
			if kv < v {
				break
			}
			p = i
		}
	}
	return p
}

// add places a key that is not yet present.
func (s *keySeq) add(k string, insert bool) {
	p := s.position(k, insert)
	s.keys = slices.Insert(s.keys, p, k)
	if v, ok := indexValue(k); ok && v >= s.next {
		s.next = v + 1
	}
}

// remove drops k from the sequence. next is left alone.
func (s *keySeq) remove(k string) bool {
	i := slices.Index(s.keys, k)
	if i < 0 {
		return false
	}
	s.keys = slices.Delete(s.keys, i, i+1)
	return true
}

// indices returns the index values in sequence order (ascending).
func (s *keySeq) indices() []int {
	var out []int
	for _, k := range s.keys {
		if v, ok := indexValue(k); ok {
			out = append(out, v)
		}
	}
	return out
}

func (s *keySeq) hasIndex() bool {
	for _, k := range s.keys {
		if IsIndexKey(k) {
			return true
		}
	}
	return false
}

// lastIndex returns the highest index key value, or -1.
func (s *keySeq) lastIndex() int {
	for i := len(s.keys) - 1; i >= 0; i-- {
		if v, ok := indexValue(s.keys[i]); ok {
			return v
		}
	}
	return -1
}

// renumber shifts index values in [from, to) by by. Values are moved through
// move in an order that never overwrites an unmoved entry.
func (s *keySeq) renumber(from, to, by int, move func(src, dst string)) {
	if by == 0 || from >= to {
		return
	}
	var affected []int
	for _, v := range s.indices() {
		if v >= from && v < to {
			affected = append(affected, v)
		}
	}
	if by > 0 {
		for i := len(affected) - 1; i >= 0; i-- {
			move(indexKey(affected[i]), indexKey(affected[i]+by))
		}
	} else {
		for _, v := range affected {
			move(indexKey(v), indexKey(v+by))
		}
	}
	if to >= s.next {
		s.next = max(0, s.next+by)
	}
	for i, k := range s.keys {
		if v, ok := indexValue(k); ok && v >= from && v < to {
			s.keys[i] = indexKey(v + by)
		}
	}
}

// reverse mirrors the key order and maps each index i to next-1-i. rename
// is called once per index key with its old and new key.
func (s *keySeq) reverse(rename func(src, dst string)) {
	last := s.next - 1
	slices.Reverse(s.keys)
	for i, k := range s.keys {
		if v, ok := indexValue(k); ok {
			nk := indexKey(last - v)
			rename(k, nk)
			s.keys[i] = nk
		}
	}
}

// truncate drops index keys >= n and returns them.
func (s *keySeq) truncate(n int) []string {
	var dropped []string
	s.keys = slices.DeleteFunc(s.keys, func(k string) bool {
		if v, ok := indexValue(k); ok && v >= n {
			dropped = append(dropped, k)
			return true
		}
		return false
	})
	s.next = n
	return dropped
}
