package query

import "testing"

func TestNormalize_Defaults(t *testing.T) {
	q := Query{
		Filters:      map[string]Filter{"color": {Values: []string{"red"}}},
		Aggregations: map[string]Aggregation{"color": {}},
	}
	q.Normalize()

	if q.Size != DefaultSize {
		t.Errorf("expected size %d, got %d", DefaultSize, q.Size)
	}
	f := q.Filters["color"]
	if f.Field != "color" || f.ApplicationType != AtLeastOne {
		t.Errorf("unexpected filter defaults: %+v", f)
	}
	a := q.Aggregations["color"]
	if a.Field != "color" || a.ApplicationType != AtLeastOne || a.Limit != DefaultBucketLimit {
		t.Errorf("unexpected aggregation defaults: %+v", a)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Query
		wantErr bool
	}{
		{"empty", Query{}, false},
		{"negative from", Query{From: -1}, true},
		{"too large", Query{Size: MaxSize + 1}, true},
		{"bad filter type", Query{Filters: map[string]Filter{"a": {ApplicationType: "NOPE"}}}, true},
		{"bad aggregation type", Query{Aggregations: map[string]Aggregation{"a": {ApplicationType: "NOPE"}}}, true},
		{"levels", Query{Aggregations: map[string]Aggregation{"a": {ApplicationType: MustAllWithLevels}}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
