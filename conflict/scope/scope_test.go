package scope

import (
	"sort"
	"testing"
)

func TestBasicPath_IsInScope(t *testing.T) {
	p := BasicPath{}

	tests := []struct {
		check string
		scope string
		want  bool
	}{
		{"/a/b/c", "/a/b", true},
		{"/a/b/c", "/a/b/c", true},
		{"/a/b", "/a/b/c", false},
		{"/a/b/c", "/A/B", true}, // case-insensitive
		{"/a/b/c", "", true},     // empty scope matches everything
		{"/a/b/c", "/", true},
		{"", "/a", false},
		{"/ab/c", "/a", false}, // element match, not string prefix
		{"a/b", "/a", false},   // malformed candidate never matches
		{"/a/b", "a", false},   // malformed scope never matches
		{" /a/b/c ", " /a/b ", true},
	}

	for _, tt := range tests {
		if got := p.IsInScope(tt.check, tt.scope); got != tt.want {
			t.Errorf("IsInScope(%q, %q) = %v, want %v", tt.check, tt.scope, got, tt.want)
		}
	}
}

func TestBasicPath_Validate(t *testing.T) {
	p := BasicPath{}

	if ok, hint := p.ValidateRuleScope("/a/b"); !ok || hint != ScopeIsValid {
		t.Errorf("valid scope rejected: %v %q", ok, hint)
	}
	if ok, _ := p.ValidateRuleScope(""); !ok {
		t.Error("empty scope should be valid")
	}
	if ok, hint := p.ValidateRuleScope("a/b"); ok || hint == ScopeIsValid {
		t.Errorf("malformed scope accepted: %v %q", ok, hint)
	}
}

func TestBasicPath_Comparer(t *testing.T) {
	scopes := []string{"", "/a", "/a/b/c", "/a/b"}
	cmp := BasicPath{}.RuleScopeComparer()

	sort.SliceStable(scopes, func(i, j int) bool { return cmp(scopes[i], scopes[j]) < 0 })

	want := []string{"/a/b/c", "/a/b", "/a", ""}
	for i := range want {
		if scopes[i] != want[i] {
			t.Fatalf("order = %v, want %v", scopes, want)
		}
	}
}

func TestIntegerRange_IsInScope(t *testing.T) {
	r := IntegerRange{}

	tests := []struct {
		check string
		scope string
		want  bool
	}{
		{"18", "1-20", true},
		{"18", "18", true},
		{"18", "12-", false}, // incomplete range never matches
		{"18", "-20", false},
		{"18", "19", false},
		{"0", "0-0", true},
		{"21", "1-20", false},
		{"1", "1-20", true},
		{"20", "1-20", true},
		{"x", "1-20", false},
		{"18", "a-b", false},
		{"18", "", true},
		{"", "1-20", true},
	}

	for _, tt := range tests {
		if got := r.IsInScope(tt.check, tt.scope); got != tt.want {
			t.Errorf("IsInScope(%q, %q) = %v, want %v", tt.check, tt.scope, got, tt.want)
		}
	}
}

func TestIntegerRange_Validate(t *testing.T) {
	r := IntegerRange{}

	valid := []string{"", "18", "1-20", "0-0"}
	for _, s := range valid {
		if ok, _ := r.ValidateRuleScope(s); !ok {
			t.Errorf("ValidateRuleScope(%q) = false, want true", s)
		}
	}

	invalid := []string{"12-", "-20", "a", "1-b", "1 - "}
	for _, s := range invalid {
		if ok, _ := r.ValidateRuleScope(s); ok {
			t.Errorf("ValidateRuleScope(%q) = true, want false", s)
		}
	}
}

func TestChangeActionSet_IsInScope(t *testing.T) {
	c := ChangeActionSet{}

	tests := []struct {
		check string
		scope string
		want  bool
	}{
		{"Edit", "Edit,Rename", true},
		{"Edit,Rename", "Edit,Rename", true},
		{"Delete", "Edit,Rename", false},
		{"Edit,Delete", "Edit,Rename", false},
		{"Edit", "", true},
		{"", "Edit", true},
		{"Edit", "Bogus", false},
		{"Edit", "3", false}, // numeric tokens never match
	}

	for _, tt := range tests {
		if got := c.IsInScope(tt.check, tt.scope); got != tt.want {
			t.Errorf("IsInScope(%q, %q) = %v, want %v", tt.check, tt.scope, got, tt.want)
		}
	}
}

func TestChangeActionSet_Validate(t *testing.T) {
	c := ChangeActionSet{}

	if ok, _ := c.ValidateRuleScope("Edit,Rename"); !ok {
		t.Error("symbolic names should validate")
	}
	if ok, _ := c.ValidateRuleScope(""); !ok {
		t.Error("empty scope should validate")
	}

	// A bare integer in the list must fail validation.
	if ok, _ := c.ValidateRuleScope("Edit,3"); ok {
		t.Error("numeric token should fail validation")
	}
	if ok, _ := c.ValidateRuleScope("3"); ok {
		t.Error("numeric scope should fail validation")
	}
	if ok, hint := c.ValidateRuleScope("Edit,Bogus"); ok || hint == ScopeIsValid {
		t.Error("unknown name should fail validation with a hint")
	}
}

// Test cases lifted from the interpreter's documented contract.
func TestPathAndRange_IsInScope(t *testing.T) {
	p := PathAndRange{}

	tests := []struct {
		check string
		scope string
		want  bool
	}{
		{"/a.txt", "/a.txt", true},
		{"/a.txt", "/a.txt;", true},
		{"/a.txt", "/a.txt;123", false},
		{"/a.txt;", "/a.txt", true},
		{"/a.txt;", "/a.txt;", true},
		{"/a.txt;", "/a.txt;123", false},
		{"/a.txt;123", "/a.txt", true},
		{"/a.txt;123", "/a.txt;", true},
		{"/a.txt;123", "/a.txt;123", true},
		{"/a.txt;123", "/a.txt;100-200", true},
		{"/a.txt;99", "/a.txt;100-200", false},
		{"/a/b;5", "/a;1-10", true},
		{"", "/a", false},
		{"/a", "", false},
	}

	for _, tt := range tests {
		if got := p.IsInScope(tt.check, tt.scope); got != tt.want {
			t.Errorf("IsInScope(%q, %q) = %v, want %v", tt.check, tt.scope, got, tt.want)
		}
	}
}

func TestPathAndRange_Validate(t *testing.T) {
	p := PathAndRange{}

	if ok, _ := p.ValidateRuleScope("/a/b;1-20"); !ok {
		t.Error("path;range should validate")
	}
	if ok, _ := p.ValidateRuleScope("/a/b"); !ok {
		t.Error("bare path should validate")
	}
	if ok, _ := p.ValidateRuleScope("a/b;1-20"); ok {
		t.Error("malformed path should fail")
	}
	if ok, _ := p.ValidateRuleScope("/a/b;1-"); ok {
		t.Error("malformed range should fail")
	}
}

func TestGlobalAndLabel(t *testing.T) {
	if !(Global{}).IsInScope("anything", "whatever") {
		t.Error("global scope must always match")
	}
	if (Label{}).IsInScope("a", "a") {
		t.Error("label scope must never match")
	}
	if ok, _ := (Global{}).ValidateRuleScope("x"); !ok {
		t.Error("global accepts any scope")
	}
	if ok, _ := (Label{}).ValidateRuleScope("x"); !ok {
		t.Error("label accepts any scope")
	}
}

func TestExactString(t *testing.T) {
	e := ExactString{}

	if !e.IsInScope("abc", "ABC") {
		t.Error("match should be case-insensitive")
	}
	if !e.IsInScope("abc", "*") {
		t.Error("wildcard should match")
	}
	if !e.IsInScope("abc", "") || !e.IsInScope("", "abc") {
		t.Error("empty side should match")
	}
	if e.IsInScope("abc", "abd") {
		t.Error("different strings should not match")
	}
}

func TestChangeGroupID(t *testing.T) {
	c := ChangeGroupID{}

	if !c.IsInScope("1523", "1523") {
		t.Error("equal ids should match")
	}
	if c.IsInScope("1523", "1524") {
		t.Error("different ids should not match")
	}
	if ok, _ := c.ValidateRuleScope("1523"); !ok {
		t.Error("integer scope should validate")
	}
	if ok, hint := c.ValidateRuleScope("abc"); ok || hint == ScopeIsValid {
		t.Error("non-integer scope should fail validation")
	}
}

func TestCompareStrings(t *testing.T) {
	if CompareStrings("a", "") >= 0 {
		t.Error("non-empty sorts before empty")
	}
	if CompareStrings("", "") != 0 {
		t.Error("empty scopes are equal")
	}
	if CompareStrings("ABC", "abc") != 0 {
		t.Error("comparison is case-insensitive")
	}
	if CompareStrings("a", "b") >= 0 || CompareStrings("b", "a") <= 0 {
		t.Error("lexical ordering broken")
	}
}
