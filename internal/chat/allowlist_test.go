package chat

import "testing"

func TestAllowList(t *testing.T) {
	list := NewAllowList([]string{"+55 11 99999-0000", "123@g.us", "", "  "}, "")

	tests := []struct {
		from string
		want bool
	}{
		{"5511999990000@c.us", true},
		{"5511999990000", true},
		{"123@g.us", true},
		{"123@c.us", false},
		{"", false},
		{"5511999990001@c.us", false},
	}
	for _, tt := range tests {
		if got := list.Allows(tt.from); got != tt.want {
			t.Errorf("Allows(%q) = %v, want %v", tt.from, got, tt.want)
		}
	}
	if list.Len() != 2 {
		t.Fatalf("Len = %d, want 2", list.Len())
	}
}

func TestAllowListNilAndEmpty(t *testing.T) {
	var nilList *AllowList
	if nilList.Allows("1@c.us") {
		t.Fatal("nil list must deny")
	}
	if NewAllowList(nil, "@s.whatsapp.net").Allows("1@s.whatsapp.net") {
		t.Fatal("empty list must deny")
	}
}

func TestAllowListCustomSuffix(t *testing.T) {
	list := NewAllowList([]string{"42"}, "@s.whatsapp.net")
	if !list.Allows("42@s.whatsapp.net") {
		t.Fatal("expected custom suffix to be applied")
	}
}

func TestFileSafeID(t *testing.T) {
	tests := map[string]string{
		"false_5511@c.us_3EB0A1": "false_5511@c.us_3EB0A1",
		"a/b\\c":                 "a_b_c",
		"..hidden":               "hidden",
		"x y":                    "x_y",
	}
	for in, want := range tests {
		if got := FileSafeID(in); got != want {
			t.Errorf("FileSafeID(%q) = %q, want %q", in, got, want)
		}
	}
}
