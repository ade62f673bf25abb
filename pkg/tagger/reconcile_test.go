package tagger

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Record
	}{
		{
			name: "complete response",
			raw: `{
				"title": "Sunset Over the Lake",
				"description": "A calm lake at dusk. Orange light reflects off the water.",
				"main_genre": "Photography",
				"secondary_genre": "Landscape",
				"keywords": ["sunset", "lake", "dusk"]
			}`,
			want: Record{
				Title:          "Sunset Over the Lake",
				Description:    "A calm lake at dusk. Orange light reflects off the water.",
				MainGenre:      "Photography",
				SecondaryGenre: "Landscape",
				Keywords:       []string{"sunset", "lake", "dusk"},
			},
		},
		{
			name: "missing keys are filled, present keys kept",
			raw:  `{"title":"A","description":"B"}`,
			want: Record{
				Title:          "A",
				Description:    "B",
				MainGenre:      Placeholder,
				SecondaryGenre: Placeholder,
				Keywords:       []string{},
			},
		},
		{
			name: "unparseable text gets full defaults",
			raw:  "not json",
			want: Record{
				Title:          Placeholder,
				Description:    Placeholder,
				MainGenre:      Placeholder,
				SecondaryGenre: Placeholder,
				Keywords:       []string{},
			},
		},
		{
			name: "empty response gets full defaults",
			raw:  "",
			want: Record{
				Title:          Placeholder,
				Description:    Placeholder,
				MainGenre:      Placeholder,
				SecondaryGenre: Placeholder,
				Keywords:       []string{},
			},
		},
		{
			name: "non-object JSON gets full defaults",
			raw:  `["title", "description"]`,
			want: Record{
				Title:          Placeholder,
				Description:    Placeholder,
				MainGenre:      Placeholder,
				SecondaryGenre: Placeholder,
				Keywords:       []string{},
			},
		},
		{
			name: "code fences and prose are stripped",
			raw: "Here is the analysis you asked for:\n```json\n" +
				`{"title":"Foggy Morning","description":"Mist.","main_genre":"Photography","secondary_genre":"Nature","keywords":["fog"]}` +
				"\n```\nLet me know if you need more.",
			want: Record{
				Title:          "Foggy Morning",
				Description:    "Mist.",
				MainGenre:      "Photography",
				SecondaryGenre: "Nature",
				Keywords:       []string{"fog"},
			},
		},
		{
			name: "nested braces and braces inside strings",
			raw:  `prefix {"title":"Set {A}","description":"has } inside","main_genre":"Art","secondary_genre":"Abstract","keywords":[]} {"title":"second object"}`,
			want: Record{
				Title:          "Set {A}",
				Description:    "has } inside",
				MainGenre:      "Art",
				SecondaryGenre: "Abstract",
				Keywords:       []string{},
			},
		},
		{
			name: "bare string keywords become a list",
			raw:  `{"title":"T","description":"D","main_genre":"G","secondary_genre":"S","keywords":"red, blue , green"}`,
			want: Record{
				Title:          "T",
				Description:    "D",
				MainGenre:      "G",
				SecondaryGenre: "S",
				Keywords:       []string{"red", "blue", "green"},
			},
		},
		{
			name: "wrong-typed fields are replaced",
			raw:  `{"title":42,"description":"D","main_genre":null,"secondary_genre":"S","keywords":{"a":1}}`,
			want: Record{
				Title:          Placeholder,
				Description:    "D",
				MainGenre:      Placeholder,
				SecondaryGenre: "S",
				Keywords:       []string{},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Reconcile(tc.raw)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Reconcile() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

// Reconciling a record's own serialization must be a no-op.
func TestReconcileIdempotent(t *testing.T) {
	r := Record{
		Title:          "City at Night",
		Description:    "Neon streets. Rain on the pavement.",
		MainGenre:      "Photography",
		SecondaryGenre: "Street",
		Keywords:       []string{"city", "night", "neon"},
	}

	bs, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got := Reconcile(string(bs))
	if !reflect.DeepEqual(got, r) {
		t.Errorf("Reconcile(marshal(r)) = %+v, want %+v", got, r)
	}

	again := Reconcile(string(bs))
	if !reflect.DeepEqual(again, got) {
		t.Errorf("second pass diverged: %+v vs %+v", again, got)
	}
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"leading prose", `sure! {"a":1}`, `{"a":1}`},
		{"trailing prose", `{"a":1} hope that helps`, `{"a":1}`},
		{"nested", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{"unbalanced", `{"a":1`, ""},
		{"no object", "nothing here", ""},
		{"brace in string", `{"a":"}"}`, `{"a":"}"}`},
		{"escaped quote in string", `{"a":"\"}"}`, `{"a":"\"}"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractObject(tc.in); got != tc.want {
				t.Errorf("extractObject(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
