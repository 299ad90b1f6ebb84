package nanos

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestToJSON(t *testing.T) {
	c := mustParse(t, `[(a 3=b k=[x] @u)]`)

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"type":"@NANOS@","next":5,"pairs":[0,"a",3,"b","k",{"type":"@NANOS@","next":1,"pairs":[0,"x"]},4,null]}`
	assert.Equal(t, string(data), want)
}

func TestFromJSON(t *testing.T) {
	input := `{"type":"@NANOS@","next":7,"pairs":[0,"a","k",{"type":"@NANOS@","next":1,"pairs":[0,1.5]},3,12345678901234567890123,"obj",{"x":1}]}`

	var c Container
	if err := json.Unmarshal([]byte(input), &c); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	assert.Equal(t, c.Keys(), []string{"0", "k", "3", "obj"})
	assert.Equal(t, c.Next(), 7)
	assert.Equal(t, c.At(Path{"k", 0}), 1.5)
	if n, ok := c.At(3).(*big.Int); !ok || n.String() != "12345678901234567890123" {
		t.Errorf("expected big.Int, got %#v", c.At(3))
	}
	obj, ok := c.At("obj").(map[string]any)
	if !ok {
		t.Fatalf("expected plain map, got %T", c.At("obj"))
	}
	assert.Equal(t, obj["x"], int64(1))
}

func TestJSON_RoundTrip(t *testing.T) {
	c := mustParse(t, `[(1 two k=[3 [4]] 9=nine 'odd key'=@n @e)]`)

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back := New()
	if err := json.Unmarshal(data, back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	assert.Equal(t, back.String(), c.String())
	assert.Equal(t, back.Next(), c.Next())
}

func TestFromJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  error
	}{
		{"wrong type", `{"type":"other","next":0,"pairs":[]}`, ErrMalformed},
		{"odd pairs", `{"type":"@NANOS@","next":0,"pairs":[0]}`, ErrMalformed},
		{"negative key", `{"type":"@NANOS@","next":0,"pairs":[-1,"x"]}`, ErrInvalidKey},
		{"bad key", `{"type":"@NANOS@","next":0,"pairs":[true,"x"]}`, ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			err := json.Unmarshal([]byte(tt.input), c)
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestFromPairs(t *testing.T) {
	c, _ := From("old")
	c.Set("stale", 1)

	if err := c.FromPairs(4, []any{"n", 1, 2, "two", 0, "zero"}); err != nil {
		t.Fatalf("FromPairs failed: %v", err)
	}
	assert.Equal(t, c.Keys(), []string{"n", "0", "2"})
	assert.Equal(t, c.Next(), 4)

	if err := c.FromPairs(0, []any{5, "five"}); err != nil {
		t.Fatalf("FromPairs failed: %v", err)
	}
	assert.Equal(t, c.Next(), 6)

	c.Lock(5)
	if err := c.FromPairs(0, nil); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}
	assert.Equal(t, c.At(5), "five")
}

func TestToObject(t *testing.T) {
	c := mustParse(t, `[(a [x @e z] k=[1 2 n=3])]`)
	c.SetNext(4)

	obj, ok := c.ToObject(ObjectOptions{}).(*orderedmap.OrderedMap[string, any])
	if !ok {
		t.Fatalf("expected ordered map, got %T", c.ToObject(ObjectOptions{}))
	}
	var keys []string
	for p := obj.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, keys, []string{"0", "1", "k"})

	list, _ := obj.Get("1")
	assert.Equal(t, list, []any{"x", nil, "z"})

	k, _ := obj.Get("k")
	if _, ok := k.(*orderedmap.OrderedMap[string, any]); !ok {
		t.Errorf("expected ordered map for mixed level, got %T", k)
	}

	arr, ok := c.ToObject(ObjectOptions{Array: ArrayAlways}).([]any)
	if !ok {
		t.Fatalf("expected slice, got %T", c.ToObject(ObjectOptions{Array: ArrayAlways}))
	}
	assert.Equal(t, len(arr), 4)
	assert.Equal(t, arr[0], "a")
	assert.Equal(t, arr[1], []any{"x", nil, "z"})
	if arr[3] != nil {
		t.Errorf("expected nil hole, got %#v", arr[3])
	}

	never := mustParse(t, `[(a b)]`).ToObject(ObjectOptions{Array: ArrayNever})
	if _, ok := never.(*orderedmap.OrderedMap[string, any]); !ok {
		t.Errorf("expected ordered map, got %T", never)
	}
}

func TestToObject_MarshalsAsJSON(t *testing.T) {
	c := mustParse(t, `[(z=1 a=[1 2])]`)
	data, err := json.Marshal(c.ToObject(ObjectOptions{}))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	assert.Equal(t, string(data), `{"z":1,"a":[1,2]}`)
}

func TestSnapshotSchema(t *testing.T) {
	schema, err := SnapshotSchema()
	if err != nil {
		t.Fatalf("SnapshotSchema failed: %v", err)
	}
	for _, want := range []string{`"@NANOS@"`, `"pairs"`, `"minimum": 0`} {
		if !strings.Contains(string(schema), want) {
			t.Errorf("schema missing %s:\n%s", want, schema)
		}
	}
}
