package schema

import (
	"strings"
	"testing"
)

func TestDefaultType(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		want Type
	}{
		{
			name: "varchar with length suffix",
			col:  Column{Name: "title", NativeType: "varchar(50)"},
			want: Type{Kind: KindString},
		},
		{
			name: "nullable text",
			col:  Column{Name: "body", NativeType: "text", Nullable: true},
			want: Type{Kind: KindString, Nullable: true},
		},
		{
			name: "bigint",
			col:  Column{Name: "id", NativeType: "bigint"},
			want: Type{Kind: KindInteger},
		},
		{
			name: "float",
			col:  Column{Name: "ratio", NativeType: "float"},
			want: Type{Kind: KindNumber},
		},
		{
			name: "date",
			col:  Column{Name: "born", NativeType: "date"},
			want: Type{Kind: KindString, Format: FormatDate},
		},
		{
			name: "time without zone",
			col:  Column{Name: "opens", NativeType: "time without time zone"},
			want: Type{Kind: KindString, Format: FormatTime},
		},
		{
			name: "datetimeoffset",
			col:  Column{Name: "seen", NativeType: "datetimeoffset"},
			want: Type{Kind: KindString, Format: FormatDateTime},
		},
		{
			name: "varbinary with length suffix",
			col:  Column{Name: "blob", NativeType: "varbinary(max)"},
			want: Type{Kind: KindString, ContentEncoding: EncodingBase64},
		},
		{
			name: "unknown degrades to string",
			col:  Column{Name: "geo", NativeType: "hierarchyid"},
			want: Type{Kind: KindString},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultType(tt.col); got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestTypeMarshalJSON(t *testing.T) {
	data, err := Type{Kind: KindString, Nullable: true, Format: FormatDateTime}.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `["string","null"]`) {
		t.Errorf("Expected nullable union type, got: %s", s)
	}
	if !strings.Contains(s, `"format":"date-time"`) {
		t.Errorf("Expected format annotation, got: %s", s)
	}

	data, err = Type{Kind: KindInteger}.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if string(data) != `{"type":"integer"}` {
		t.Errorf("Expected bare scalar type, got: %s", data)
	}
}

func TestTableJSONSchema(t *testing.T) {
	tbl := &Table{
		Stream: "orders",
		Types: map[string]Type{
			"id":     {Kind: KindInteger},
			"amount": {Kind: KindNumber, Nullable: true},
		},
	}

	doc := tbl.JSONSchema()
	if doc["type"] != "object" {
		t.Errorf("Expected object schema, got %v", doc["type"])
	}
	props, ok := doc["properties"].(map[string]interface{})
	if !ok || len(props) != 2 {
		t.Fatalf("Expected 2 properties, got %v", doc["properties"])
	}
}

func TestColumnNames(t *testing.T) {
	tbl := &Table{Columns: []Column{{Name: "id"}, {Name: "amount"}}}
	names := tbl.ColumnNames()
	if len(names) != 2 || names[0] != "id" || names[1] != "amount" {
		t.Errorf("Expected catalog order preserved, got %v", names)
	}
}
