package target

import (
	"reflect"
	"testing"
)

func TestFromName(t *testing.T) {
	got := FromName("org.example.Svc")
	want := Descriptor{
		Service:   "org.example.Svc",
		Path:      "/org/example/Svc",
		Interface: "org.example.Svc",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromName = %+v, want %+v", got, want)
	}
	if problems := got.Validate(); len(problems) != 0 {
		t.Errorf("derived descriptor invalid: %v", problems)
	}
}

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name     string
		desc     Descriptor
		problems int
	}{
		{"valid", Descriptor{"org.example.Svc", "/org/example/Svc", "org.example.Svc"}, 0},
		{"hyphenated service", Descriptor{"org.example-x.Svc", "/org/example/Svc", "org.example.Svc"}, 0},
		{"bad service", Descriptor{"noDots", "/org", "org.example"}, 1},
		{"bad path", Descriptor{"org.example", "org/example", "org.example"}, 1},
		{"hyphenated interface", Descriptor{"org.example", "/org", "org.exa-mple"}, 1},
		{"all bad", Descriptor{"", "", ""}, 3},
		{"digit-led element", Descriptor{"org.1example", "/org", "org.example"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.desc.Validate()
			if len(got) != tt.problems {
				t.Errorf("Validate() = %v, want %d problems", got, tt.problems)
			}
		})
	}
}

func TestValidMemberName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"simple", "Add", true},
		{"underscore", "_private", true},
		{"with digits", "Get2", true},
		{"empty", "", false},
		{"dotted", "a.b", false},
		{"digit led", "2Get", false},
		{"hyphen", "get-it", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidMemberName(tt.in); got != tt.ok {
				t.Errorf("ValidMemberName(%q) = %v, want %v", tt.in, got, tt.ok)
			}
		})
	}
}

func TestDescriptor_Key(t *testing.T) {
	d := Descriptor{"a.b", "/a/b", "a.b"}
	if got := d.Key(); got != "a.b /a/b a.b" {
		t.Errorf("Key() = %q", got)
	}
}
