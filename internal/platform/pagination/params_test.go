package pagination

import (
	"errors"
	"reflect"
	"testing"
)

func TestClampPageSize(t *testing.T) {
	cases := []struct {
		name      string
		requested int
		def       int
		max       int
		want      int
	}{
		{name: "zero falls back to default", requested: 0, def: 20, max: 100, want: 20},
		{name: "negative falls back to default", requested: -5, def: 20, max: 100, want: 20},
		{name: "within bounds passes through", requested: 35, def: 20, max: 100, want: 35},
		{name: "above max is capped", requested: 500, def: 20, max: 100, want: 100},
		{name: "zero bounds use package defaults", requested: 0, def: 0, max: 0, want: DefaultPageSize},
		{name: "default above max is capped", requested: 0, def: 200, max: 100, want: 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampPageSize(tc.requested, tc.def, tc.max); got != tc.want {
				t.Fatalf("ClampPageSize(%d, %d, %d) = %d, want %d", tc.requested, tc.def, tc.max, got, tc.want)
			}
		})
	}
}

func TestParsePageSize(t *testing.T) {
	got, err := ParsePageSize("", 20, 100)
	if err != nil {
		t.Fatalf("empty value returned error: %v", err)
	}
	if got != 20 {
		t.Fatalf("empty value: got %d, want default 20", got)
	}

	got, err = ParsePageSize(" 500 ", 20, 100)
	if err != nil {
		t.Fatalf("oversized value returned error: %v", err)
	}
	if got != 100 {
		t.Fatalf("oversized value: got %d, want cap 100", got)
	}

	if _, err := ParsePageSize("lots", 20, 100); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("non-integer value: got %v, want ErrInvalidPageSize", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cursor := Cursor{StartAfter: []any{"2024-06-01T10:00:00Z", "order-123"}}

	token, err := EncodeToken(cursor)
	if err != nil {
		t.Fatalf("EncodeToken returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	decoded, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("DecodeToken returned error: %v", err)
	}
	if !reflect.DeepEqual(decoded, cursor) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, cursor)
	}
}

func TestEncodeTokenEmptyCursor(t *testing.T) {
	token, err := EncodeToken(Cursor{})
	if err != nil {
		t.Fatalf("EncodeToken returned error: %v", err)
	}
	if token != "" {
		t.Fatalf("empty cursor should yield an empty token, got %q", token)
	}
}

func TestDecodeTokenInvalid(t *testing.T) {
	if _, err := DecodeToken("not-base64!!"); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("malformed base64: got %v, want ErrInvalidPageToken", err)
	}
	if _, err := DecodeToken("bm90LWpzb24"); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("non-JSON payload: got %v, want ErrInvalidPageToken", err)
	}

	cursor, err := DecodeToken("  ")
	if err != nil {
		t.Fatalf("blank token returned error: %v", err)
	}
	if len(cursor.StartAfter) != 0 || len(cursor.StartAt) != 0 {
		t.Fatalf("blank token should yield an empty cursor, got %+v", cursor)
	}
}
