package metadata

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignAndVerify(t *testing.T) {
	generated := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	content := "DATA VALIDATION REPORT\nTotal Records: 3\n"

	signed := Sign(content, Metadata{RunID: "run-1", Valid: true, Generated: generated})

	if !strings.Contains(signed, "RUN_ID: run-1") || !strings.Contains(signed, "VALID: TRUE") {
		t.Fatalf("signed block missing fields:\n%s", signed)
	}

	meta, err := Verify(signed)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if meta.RunID != "run-1" || !meta.Valid || !meta.Generated.Equal(generated) {
		t.Errorf("meta = %+v", meta)
	}
}

func TestSign_ReplacesExistingBlock(t *testing.T) {
	first := Sign("report body", Metadata{Valid: false})
	second := Sign(first, Metadata{Valid: true})

	if strings.Count(second, TagStart) != 1 {
		t.Errorf("expected one metadata block, got:\n%s", second)
	}

	_, clean := Extract(second)
	if clean != "report body" {
		t.Errorf("clean = %q", clean)
	}
}

func TestVerify_Errors(t *testing.T) {
	if _, err := Verify("no block here"); !errors.Is(err, ErrNoMetadataBlock) {
		t.Errorf("expected ErrNoMetadataBlock, got %v", err)
	}

	signed := Sign("Total Records: 3", Metadata{})
	tampered := strings.Replace(signed, "Total Records: 3", "Total Records: 4", 1)

	if _, err := Verify(tampered); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("expected ErrHashMismatch, got %v", err)
	}

	noHash := "body\n\n" + TagStart + "\nVALID: TRUE\n" + TagEnd + "\n"
	if _, err := Verify(noHash); !errors.Is(err, ErrNoHashFound) {
		t.Errorf("expected ErrNoHashFound, got %v", err)
	}
}
