package ledger

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLogLatestBalanceSkipsEntriesWithoutBalance(t *testing.T) {
	log := NewLog(
		Transaction{Type: TypeCreateAccount, Timestamp: "2024-01-01T00:00:00.000000000", Balance: int64Ptr(0)},
		Transaction{Type: TypeDeposit, Timestamp: "2024-01-01T00:00:01.000000000", Balance: int64Ptr(100), Amount: int64Ptr(100)},
		Transaction{Type: TypeAccountUpdate, Timestamp: "2024-01-01T00:00:02.000000000"},
	)
	if got := log.LatestBalance(); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	latest, ok := log.Latest()
	if !ok || latest.Type != TypeAccountUpdate {
		t.Fatalf("expected account_update as latest, got %+v", latest)
	}
}

func TestLogLatestBalanceUsesTimestampNotInsertionOrder(t *testing.T) {
	log := NewLog(
		Transaction{Type: TypeDeposit, Timestamp: "2024-01-01T00:00:05.000000000", Balance: int64Ptr(70)},
		Transaction{Type: TypeDeposit, Timestamp: "2024-01-01T00:00:01.000000000", Balance: int64Ptr(10)},
	)
	if got := log.LatestBalance(); got != 70 {
		t.Fatalf("expected balance of newest entry, got %d", got)
	}
	entries := log.Entries()
	if entries[0].Timestamp > entries[1].Timestamp {
		t.Fatalf("expected ascending order, got %+v", entries)
	}
}

func TestEmptyLog(t *testing.T) {
	var log Log
	if log.LatestBalance() != 0 || log.Len() != 0 || log.LatestTimestamp() != "" {
		t.Fatal("expected empty log to report zero values")
	}
	if _, ok := log.Latest(); ok {
		t.Fatal("expected no latest entry")
	}
	data, err := json.Marshal(log)
	if err != nil || string(data) != "[]" {
		t.Fatalf("expected [], got %s (%v)", data, err)
	}
}

func TestLogAppendDoesNotAlias(t *testing.T) {
	base := NewLog(Transaction{Type: TypeCreateAccount, Timestamp: "2024-01-01T00:00:00.000000000", Balance: int64Ptr(0)})
	a := base.Append(Transaction{Type: TypeDeposit, Timestamp: "2024-01-01T00:00:01.000000000", Balance: int64Ptr(5)})
	b := base.Append(Transaction{Type: TypeDeposit, Timestamp: "2024-01-01T00:00:01.000000000", Balance: int64Ptr(9)})

	if base.Len() != 1 {
		t.Fatalf("append mutated receiver: len %d", base.Len())
	}
	if a.LatestBalance() != 5 || b.LatestBalance() != 9 {
		t.Fatalf("appends share storage: a=%d b=%d", a.LatestBalance(), b.LatestBalance())
	}
}

func TestLogJSONRoundTripKeepsFieldNames(t *testing.T) {
	events := NewEvents(func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) })
	log := events.Deposited(events.AccountCreated(), 25)

	data, err := json.Marshal(log)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw[0]["transactionAmt"]; ok {
		t.Fatal("create_account entry must not carry an amount")
	}
	if raw[1]["transactionAmt"] != float64(25) || raw[1]["ts"] == "" {
		t.Fatalf("unexpected deposit encoding %v", raw[1])
	}

	var decoded Log
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal log: %v", err)
	}
	if decoded.Len() != 2 || decoded.LatestBalance() != 25 {
		t.Fatalf("unexpected decoded log %+v", decoded.Entries())
	}
}
