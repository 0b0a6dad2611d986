package envelope_test

import (
	"encoding/json"
	"errors"
	"testing"

	"portalsync/internal/envelope"
	"portalsync/internal/services"
)

func TestConstructorsKeepDataAndErrorExclusive(t *testing.T) {
	ok := envelope.Ok(map[string]string{"id": "app_1"})
	if !ok.Success || ok.Offline || ok.Error != "" || ok.Kind != "" {
		t.Fatalf("unexpected ok envelope: %#v", ok)
	}
	if !ok.Confirmed() || ok.Err() != nil {
		t.Fatalf("expected confirmed ok envelope")
	}

	failed := envelope.Fail[string](services.Wrap(services.ErrStorage, "queue", "persist", "", errors.New("disk full")))
	if failed.Success || failed.Data != "" {
		t.Fatalf("unexpected failed envelope: %#v", failed)
	}
	if failed.Kind != services.KindStorage {
		t.Fatalf("expected storage kind, got %q", failed.Kind)
	}
	var failure *envelope.Failure
	if !errors.As(failed.Err(), &failure) || failure.Kind != services.KindStorage {
		t.Fatalf("expected Failure error with storage kind, got %v", failed.Err())
	}

	ack := envelope.OfflineAck("draft", "act-1")
	if !ack.Success || !ack.Offline || ack.ActionID != "act-1" {
		t.Fatalf("unexpected offline envelope: %#v", ack)
	}
	if ack.Confirmed() {
		t.Fatal("offline envelope must not be confirmed")
	}
}

func TestFailWithNilError(t *testing.T) {
	res := envelope.Fail[int](nil)
	if res.Success || res.Error == "" || res.Kind != services.KindApplication {
		t.Fatalf("unexpected envelope: %#v", res)
	}
}

func TestJSONShape(t *testing.T) {
	data, err := json.Marshal(envelope.OfflineAck(json.RawMessage(`{"name":"B"}`), "act-9"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["success"] != true || decoded["offline"] != true || decoded["action_id"] != "act-9" {
		t.Fatalf("unexpected JSON shape: %s", data)
	}
	if _, ok := decoded["error"]; ok {
		t.Fatalf("error key should be omitted on success: %s", data)
	}
}
