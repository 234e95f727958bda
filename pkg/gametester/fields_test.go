package gametester

import (
	"encoding/json"
	"testing"
)

func TestFields_MarshalJSON(t *testing.T) {
	f := NewFields()
	f.Set(FieldDeveloperToken, `dev"quoted`)
	f.Set(FieldPlayerPin, "4321")
	f.Set(FieldDatapointID, 7)

	body, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := `{"developerToken":"dev\"quoted","playerPin":"4321","datapointId":7}`
	if string(body) != want {
		t.Errorf("Expected %s, got %s", want, body)
	}
}

func TestFields_SetReplacesInPlace(t *testing.T) {
	f := NewFields()
	f.Set("a", 1)
	f.Set("b", 2)
	f.Set("a", 3)

	if f.Len() != 2 {
		t.Fatalf("Expected 2 fields, got %d", f.Len())
	}

	body, _ := f.MarshalJSON()
	if string(body) != `{"a":3,"b":2}` {
		t.Errorf("Unexpected body %s", body)
	}
}

func TestFields_EmptyObject(t *testing.T) {
	body, err := NewFields().MarshalJSON()
	if err != nil || string(body) != `{}` {
		t.Errorf("Expected {}, got %s (%v)", body, err)
	}
}

func TestFields_Encode(t *testing.T) {
	f := NewFields()
	f.Set(FieldFunction, FunctionUnlock)
	f.Set(FieldDatapointID, 12)

	body, contentType, err := f.Encode(EncodingForm)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if contentType != "application/x-www-form-urlencoded" {
		t.Errorf("Unexpected content type %s", contentType)
	}
	if string(body) != "datapointId=12&function=unlock" {
		t.Errorf("Unexpected form body %s", body)
	}

	_, contentType, err = f.Encode(EncodingJSON)
	if err != nil || contentType != "application/json" {
		t.Errorf("Unexpected JSON encode result %s, %v", contentType, err)
	}

	if _, _, err := f.Encode("xml"); err == nil {
		t.Error("Expected error for unknown encoding")
	}
}

func TestFields_UnmarshalableValue(t *testing.T) {
	f := NewFields()
	f.Set("bad", make(chan int))

	if _, _, err := f.Encode(EncodingJSON); err == nil {
		t.Error("Expected marshal error")
	}
}
