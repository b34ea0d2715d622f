package model

import (
	"encoding/json"
	"testing"
)

func TestFieldConfigBucketDefault(t *testing.T) {
	if got := (FieldConfig{}).Bucket(); got != DefaultBucket {
		t.Errorf("Bucket() = %q, want %q", got, DefaultBucket)
	}
	if got := (FieldConfig{BucketName: "decks"}).Bucket(); got != "decks" {
		t.Errorf("Bucket() = %q, want decks", got)
	}
}

func TestFieldConfigIsFile(t *testing.T) {
	for typ, want := range map[string]bool{
		FieldFile:       true,
		FieldFileUpload: true,
		FieldText:       false,
		"custom_widget": false,
	} {
		if got := (FieldConfig{Type: typ}).IsFile(); got != want {
			t.Errorf("IsFile(%q) = %v, want %v", typ, got, want)
		}
	}
}

func TestFieldConfigListDuplicateID(t *testing.T) {
	cfg := FieldConfigList{{ID: "a"}, {ID: "b"}, {ID: "a"}}
	if id, dup := cfg.DuplicateID(); !dup || id != "a" {
		t.Errorf("DuplicateID() = %q, %v", id, dup)
	}
	unique := FieldConfigList{{ID: "a"}, {ID: "b"}}
	if _, dup := unique.DuplicateID(); dup {
		t.Error("unique ids reported as duplicate")
	}
}

func TestFieldConfigListJSON(t *testing.T) {
	// The persisted shape of a typeform_config column entry.
	raw := `[{"id": "members", "label": "Team members", "type": "team_members",
		"isTeamMembers": true, "required": true, "options": ["2", "3", "4"],
		"bucketName": "teams"}]`

	var cfg FieldConfigList
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatal(err)
	}
	f := cfg[0]
	if f.ID != "members" || !f.IsTeamMembers || !f.Required {
		t.Errorf("unexpected field %+v", f)
	}
	if len(f.Options) != 3 || f.Bucket() != "teams" {
		t.Errorf("unexpected options/bucket %+v", f)
	}
}

func TestFieldConfigListScan(t *testing.T) {
	var cfg FieldConfigList
	if err := cfg.Scan([]byte(`[{"id": "x", "label": "X"}]`)); err != nil {
		t.Fatal(err)
	}
	if len(cfg) != 1 || cfg[0].ID != "x" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if err := cfg.Scan(nil); err != nil || cfg != nil {
		t.Errorf("scanning NULL should reset the list, got %v %v", cfg, err)
	}
	if err := cfg.Scan(42); err == nil {
		t.Error("expected an error for an unsupported source type")
	}
}

func TestJSONMapRoundTrip(t *testing.T) {
	m := JSONMap{"name": "Ada", "team_size": float64(3)}
	v, err := m.Value()
	if err != nil {
		t.Fatal(err)
	}
	var out JSONMap
	if err := out.Scan(v); err != nil {
		t.Fatal(err)
	}
	if out["name"] != "Ada" || out["team_size"] != float64(3) {
		t.Errorf("unexpected map %+v", out)
	}
}

func TestNilJSONValuesAreNull(t *testing.T) {
	if v, err := (JSONMap)(nil).Value(); err != nil || v != nil {
		t.Errorf("nil JSONMap should store as NULL, got %v %v", v, err)
	}
	if v, err := (FieldConfigList)(nil).Value(); err != nil || v != nil {
		t.Errorf("nil FieldConfigList should store as NULL, got %v %v", v, err)
	}
}
