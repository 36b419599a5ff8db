package storage

import (
	"strings"
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	key := ObjectKey("imports", "../../etc/leads.csv", now)
	if !strings.HasPrefix(key, "imports/leads_20260304T050607_") {
		t.Errorf("ObjectKey() = %q, want imports/leads_20260304T050607_ prefix", key)
	}
	if !strings.HasSuffix(key, ".csv") {
		t.Errorf("ObjectKey() = %q, want .csv suffix", key)
	}
	if strings.Contains(key, "..") {
		t.Errorf("ObjectKey() = %q, path traversal survived", key)
	}

	if other := ObjectKey("imports", "../../etc/leads.csv", now); other == key {
		t.Error("ObjectKey() returned identical keys for two uploads")
	}
}

func TestObjectKeyEmptyName(t *testing.T) {
	key := ObjectKey("imports", "", time.Unix(0, 0))
	if !strings.HasPrefix(key, "imports/upload_") {
		t.Errorf("ObjectKey(empty) = %q, want imports/upload_ prefix", key)
	}
}

func TestValidateFileSize(t *testing.T) {
	s := &MinIOService{maxFileSize: 100}
	if err := s.ValidateFileSize(0); err == nil {
		t.Error("ValidateFileSize(0) error = nil, want error")
	}
	if err := s.ValidateFileSize(100); err != nil {
		t.Errorf("ValidateFileSize(100) error = %v", err)
	}
	if err := s.ValidateFileSize(101); err == nil {
		t.Error("ValidateFileSize(101) error = nil, want error")
	}
}
