package domain

import (
	"reflect"
	"strings"
	"testing"
)

func TestDeliveryRecordModelTags(t *testing.T) {
	typ := reflect.TypeOf(DeliveryRecord{})

	id, ok := typ.FieldByName("ID")
	if !ok {
		t.Fatal("missing DeliveryRecord.ID field")
	}
	if !strings.Contains(id.Tag.Get("gorm"), "primaryKey") {
		t.Fatalf("DeliveryRecord.ID gorm tag missing primaryKey: %q", id.Tag.Get("gorm"))
	}

	for _, secret := range []string{"Code", "Token"} {
		f, ok := typ.FieldByName(secret)
		if !ok {
			t.Fatalf("missing DeliveryRecord.%s field", secret)
		}
		if got := f.Tag.Get("json"); got != "-" {
			t.Fatalf("DeliveryRecord.%s must not be serialized, json tag %q", secret, got)
		}
		if got := f.Tag.Get("csv"); got != "-" {
			t.Fatalf("DeliveryRecord.%s must not be exported, csv tag %q", secret, got)
		}
	}

	status, ok := typ.FieldByName("Status")
	if !ok {
		t.Fatal("missing DeliveryRecord.Status field")
	}
	if !strings.Contains(status.Tag.Get("gorm"), "default:unset") {
		t.Fatalf("DeliveryRecord.Status gorm tag missing default:unset: %q", status.Tag.Get("gorm"))
	}
}

func TestParseStatusLabel(t *testing.T) {
	cases := map[string]DeliveryStatus{
		"":           StatusUnset,
		"Pendiente":  StatusPending,
		" pendiente": StatusPending,
		"Verificado": StatusVerified,
		"verified":   StatusVerified,
	}
	for in, want := range cases {
		got, err := ParseStatusLabel(in)
		if err != nil {
			t.Fatalf("ParseStatusLabel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseStatusLabel(%q)=%q want=%q", in, got, want)
		}
	}
	if _, err := ParseStatusLabel("Rechazado"); err == nil {
		t.Fatal("expected unknown label error")
	}
}

func TestStatusStoreLabelRoundTrip(t *testing.T) {
	for _, s := range []DeliveryStatus{StatusUnset, StatusPending, StatusVerified} {
		got, err := ParseStatusLabel(s.StoreLabel())
		if err != nil || got != s {
			t.Fatalf("round trip %q: got %q err=%v", s, got, err)
		}
	}
}

func TestParseConfirmationMode(t *testing.T) {
	if m, err := ParseConfirmationMode(" LINK "); err != nil || m != ModeLink {
		t.Fatalf("expected link mode, got %q err=%v", m, err)
	}
	if m, err := ParseConfirmationMode("code"); err != nil || m != ModeCode {
		t.Fatalf("expected code mode, got %q err=%v", m, err)
	}
	if _, err := ParseConfirmationMode("sms"); err == nil {
		t.Fatal("expected unknown mode error")
	}
}
