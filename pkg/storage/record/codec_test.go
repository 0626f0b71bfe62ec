package record

import (
	"testing"

	"kizuna/pkg/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		fields []types.Value
	}{
		{
			name: "mixed types",
			fields: []types.Value{
				types.NewInt(42),
				types.NewString(types.Varchar, "alice"),
				types.NewBool(true),
				types.NewDouble(3.5),
			},
		},
		{
			name: "all null",
			fields: []types.Value{
				types.Null(types.Integer),
				types.Null(types.Varchar),
				types.Null(types.Boolean),
			},
		},
		{
			name: "max length varchar",
			fields: []types.Value{
				types.NewString(types.Varchar, string(make([]byte, 255))),
			},
		},
		{
			name:   "empty schema",
			fields: []types.Value{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := make([]types.DataType, len(tt.fields))
			for i, f := range tt.fields {
				schema[i] = f.Type
			}

			encoded, err := Encode(tt.fields)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			decoded, err := Decode(encoded, schema)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(decoded) != len(tt.fields) {
				t.Fatalf("expected %d fields, got %d", len(tt.fields), len(decoded))
			}
			for i := range tt.fields {
				want, got := tt.fields[i], decoded[i]
				if want.IsNull != got.IsNull || want.Type != got.Type {
					t.Fatalf("field %d: want %+v got %+v", i, want, got)
				}
				if !want.IsNull && want.DisplayString() != got.DisplayString() {
					t.Fatalf("field %d: want %q got %q", i, want.DisplayString(), got.DisplayString())
				}
			}
		})
	}
}

func TestDecodeFieldCountMismatch(t *testing.T) {
	encoded, err := Encode([]types.Value{types.NewInt(1), types.NewInt(2)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(encoded, []types.DataType{types.Integer}); err == nil {
		t.Fatal("expected error on field count mismatch")
	}
}

func TestDecodeTruncated(t *testing.T) {
	encoded, err := Encode([]types.Value{types.NewString(types.Varchar, "hello")})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(encoded[:len(encoded)-2], []types.DataType{types.Varchar}); err == nil {
		t.Fatal("expected error on truncated record")
	}
}
