package indexkey

import (
	"bytes"
	"sort"
	"testing"

	"kizuna/pkg/types"
)

func TestIntegerOrderingPreserved(t *testing.T) {
	ints := []int32{-100, -1, 0, 1, 42, 2147483647, -2147483648}
	var keys [][]byte
	for _, v := range ints {
		k, err := Encode([]types.Value{types.NewInt(v)})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		keys = append(keys, k)
	}
	sorted := append([]int32(nil), ints...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	sortedKeys := append([][]byte(nil), keys...)
	sort.Slice(sortedKeys, func(i, j int) bool { return bytes.Compare(sortedKeys[i], sortedKeys[j]) < 0 })

	for i, v := range sorted {
		want, _ := Encode([]types.Value{types.NewInt(v)})
		if !bytes.Equal(sortedKeys[i], want) {
			t.Fatalf("byte-sorted order does not match numeric order at index %d", i)
		}
	}
}

func TestFloatOrderingPreserved(t *testing.T) {
	floats := []float64{-10.5, -0.001, 0, 0.001, 10.5}
	var keys [][]byte
	for _, f := range floats {
		k, err := Encode([]types.Value{types.NewDouble(f)})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		if bytes.Compare(keys[i-1], keys[i]) >= 0 {
			t.Fatalf("expected key %d < key %d for %v < %v", i-1, i, floats[i-1], floats[i])
		}
	}
}

func TestStringOrderingPreserved(t *testing.T) {
	strs := []string{"alice", "amy", "bob", "bobby"}
	var keys [][]byte
	for _, s := range strs {
		k, err := Encode([]types.Value{types.NewString(types.Varchar, s)})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		if bytes.Compare(keys[i-1], keys[i]) >= 0 {
			t.Fatalf("expected %q < %q in key order", strs[i-1], strs[i])
		}
	}
}

func TestCompositeKeyStringThenInt(t *testing.T) {
	a, _ := Encode([]types.Value{types.NewString(types.Varchar, "amy"), types.NewInt(1)})
	b, _ := Encode([]types.Value{types.NewString(types.Varchar, "amy"), types.NewInt(2)})
	c, _ := Encode([]types.Value{types.NewString(types.Varchar, "amz"), types.NewInt(0)})
	if bytes.Compare(a, b) >= 0 {
		t.Fatal("expected (amy,1) < (amy,2)")
	}
	if bytes.Compare(b, c) >= 0 {
		t.Fatal("expected (amy,2) < (amz,0)")
	}
}

func TestRejectsNull(t *testing.T) {
	_, err := Encode([]types.Value{types.Null(types.Integer)})
	if err == nil {
		t.Fatal("expected an error encoding a NULL value")
	}
}
