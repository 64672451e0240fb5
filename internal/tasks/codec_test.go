package tasks

import (
	"errors"
	"strings"
	"testing"
)

// A dump of the browser app's localStorage value.
const browserBlob = `[
 {"id":1760780000123,"text":"Buy milk","createdAt":"2026-10-18"},
 {"id":1760700000000,"text":"Old","createdAt":"2026-10-17","updatedAt":"2026-10-18","deletedAt":"2026-10-18"}
]`

func TestDecodeTasks_BrowserBlob(t *testing.T) {
	got, err := DecodeTasks(browserBlob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].ID.String() != "1760780000123" || got[0].UpdatedAt != nil || got[0].Deleted() {
		t.Fatalf("first = %+v", got[0])
	}
	if !got[1].Deleted() || *got[1].UpdatedAt != "2026-10-18" {
		t.Fatalf("second = %+v", got[1])
	}
}

func TestEncodeTasks_KeepsNumericIDsNumeric(t *testing.T) {
	in, err := DecodeTasks(browserBlob)
	if err != nil {
		t.Fatal(err)
	}
	out, err := EncodeTasks(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"id":1760780000123`) {
		t.Fatalf("numeric id re-encoded as string: %s", out)
	}
	if !strings.Contains(out, `"updatedAt":null`) {
		t.Fatalf("absent dates should encode as null: %s", out)
	}
}

func TestEncodeTasks_NilIsEmptyArray(t *testing.T) {
	out, err := EncodeTasks(nil)
	if err != nil || out != "[]" {
		t.Fatalf("EncodeTasks(nil) = %q, %v", out, err)
	}
	back, err := DecodeTasks(out)
	if err != nil || back == nil || len(back) != 0 {
		t.Fatalf("DecodeTasks(%q) = %v, %v", out, back, err)
	}
}

func TestDecodeTasks_StringIDsAndNullDates(t *testing.T) {
	blob := `[{"id":"0192a0b0-0000-7000-8000-000000000001","text":"x","createdAt":"2026-10-18","updatedAt":null,"deletedAt":null}]`
	got, err := DecodeTasks(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, _ := EncodeTasks(got)
	if out != blob {
		t.Fatalf("round trip changed blob:\n got %s\nwant %s", out, blob)
	}
}

func TestDecodeTasks_RejectsMalformed(t *testing.T) {
	for _, blob := range []string{
		"",
		"[",
		`"myTasks"`,
		`{"tasks":[]}`,
		`[1,2,3]`,
		`[{"id":1,"text":"x"}]`,
		`[{"id":1,"text":"x","createdAt":"2026-10-18","deletedAt":"yesterday"}]`,
	} {
		if _, err := DecodeTasks(blob); !errors.Is(err, ErrMalformedBlob) {
			t.Errorf("DecodeTasks(%q) err = %v, want ErrMalformedBlob", blob, err)
		}
	}
}
