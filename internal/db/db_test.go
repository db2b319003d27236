package db

import (
	"context"
	"errors"
	"testing"

	"github.com/HackGT12/app-view-sub000/internal/config"
)

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(config.DBConfig{DSN: "  "}, nil); !errors.Is(err, ErrNoDSN) {
		t.Fatalf("err=%v want=%v", err, ErrNoDSN)
	}
}

func TestNilDBIsSafe(t *testing.T) {
	var d *DB
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := d.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := d.SetTimezone("UTC"); err != nil {
		t.Fatalf("timezone: %v", err)
	}
	if err := d.Ping(context.Background()); err == nil {
		t.Fatalf("ping on nil db should fail")
	}
}
