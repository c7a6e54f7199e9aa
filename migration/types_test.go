package migration

import (
	"strings"
	"testing"
)

func TestParseChangeAction(t *testing.T) {
	tests := []struct {
		input   string
		want    ChangeAction
		wantErr bool
	}{
		{"Edit", Edit, false},
		{"edit", Edit, false},
		{"Edit,Rename", Edit | Rename, false},
		{" Edit , Rename ", Edit | Rename, false},
		{"None", None, false},
		{"Add,Edit,Delete", Add | Edit | Delete, false},
		{"", None, true},
		{"Edit,", None, true},
		{"Bogus", None, true},
		// Numeric tokens are rejected even when they would be valid bit
		// patterns; only symbolic names are accepted.
		{"3", None, true},
		{"Edit,3", None, true},
		{"-1", None, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseChangeAction(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseChangeAction(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChangeAction(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseChangeAction(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestChangeAction_String(t *testing.T) {
	if got := (Edit | Rename).String(); got != "Edit,Rename" {
		t.Errorf("String() = %q, want Edit,Rename", got)
	}
	if got := None.String(); got != "None" {
		t.Errorf("String() = %q, want None", got)
	}

	// Round trip through the parser.
	mask := Add | Delete | Merge
	parsed, err := ParseChangeAction(mask.String())
	if err != nil {
		t.Fatalf("round trip parse failed: %v", err)
	}
	if parsed != mask {
		t.Errorf("round trip = %v, want %v", parsed, mask)
	}
}

func TestChangeAction_Has(t *testing.T) {
	mask := Edit | Rename
	if !mask.Has(Edit) {
		t.Error("Edit|Rename should contain Edit")
	}
	if mask.Has(Delete) {
		t.Error("Edit|Rename should not contain Delete")
	}
	if !mask.Has(Edit | Rename) {
		t.Error("mask should contain itself")
	}
}

func TestChangeGroup_Skip(t *testing.T) {
	group := &ChangeGroup{
		Status: GroupBlocked,
		Actions: []*Action{
			{Path: "/a", State: ActionPending},
			{Path: "/b", State: ActionComplete},
			{Path: "/c", State: ActionPending},
		},
	}

	group.Skip()

	if group.Status != GroupSkipped {
		t.Errorf("group status = %v, want Skipped", group.Status)
	}
	if group.Actions[0].State != ActionSkipped {
		t.Error("pending action should be skipped")
	}
	if group.Actions[1].State != ActionComplete {
		t.Error("completed action must not be touched")
	}
	if group.Actions[2].State != ActionSkipped {
		t.Error("pending action should be skipped")
	}
}

func TestStatusStrings(t *testing.T) {
	for _, s := range []string{
		ActionSkipped.String(),
		GroupBlocked.String(),
		LinkSkipped.String(),
	} {
		if strings.Contains(s, "(") {
			t.Errorf("unexpected fallback rendering: %s", s)
		}
	}
}

func TestChangeActionBits(t *testing.T) {
	if None != 0 {
		t.Errorf("None = %d, want 0", None)
	}
	ordered := []ChangeAction{Add, Edit, Rename, Delete, Undelete, Branch, Merge, Label, Encoding}
	for i, bit := range ordered {
		if want := ChangeAction(1) << i; bit != want {
			t.Errorf("bit %d = %d, want %d", i, bit, want)
		}
	}
}
