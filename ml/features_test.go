package ml

import (
	"errors"
	"testing"
)

func completeRow() FeatureRow {
	row := FeatureRow{}
	for i, name := range RequiredFeatures {
		row[name] = float64(i)
	}
	return row
}

func TestVectorizeRowCanonicalOrder(t *testing.T) {
	row := completeRow()
	// Feature values equal their canonical position, so a correctly
	// ordered vector is 0..15 regardless of map iteration order.
	vector, err := VectorizeRow(row, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != len(RequiredFeatures) {
		t.Fatalf("expected %d values, got %d", len(RequiredFeatures), len(vector))
	}
	for i, value := range vector {
		if value != float64(i) {
			t.Fatalf("position %d holds %f, expected %d", i, value, i)
		}
	}
}

func TestVectorizeRowMissingFeature(t *testing.T) {
	row := completeRow()
	delete(row, "koi_period")

	_, err := VectorizeRow(row, 3)
	if err == nil {
		t.Fatal("expected error for missing feature")
	}
	var missing *MissingFeatureError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFeatureError, got %T", err)
	}
	if missing.Feature != "koi_period" || missing.Row != 3 {
		t.Fatalf("unexpected error detail: %+v", missing)
	}
}

func TestVectorizeRowsFailsWholeBatch(t *testing.T) {
	bad := completeRow()
	delete(bad, "koi_kepmag")

	vectors, err := VectorizeRows([]FeatureRow{completeRow(), bad})
	if err == nil {
		t.Fatal("expected error for incomplete row")
	}
	if vectors != nil {
		t.Fatal("expected no partial result")
	}
}
