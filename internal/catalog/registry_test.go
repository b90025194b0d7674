package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterNewSkipsKnownAndRepeatedIdentifiers(t *testing.T) {
	known := NewDedupRegistry("A")

	batch := []Product{
		{ID: "A", Title: "Known"},
		{ID: "B", Title: "New"},
		{ID: "B", Title: "New again on a later page"},
		{ID: NoID, Title: "No id"},
		{ID: "", Title: "Blank id"},
	}

	fresh := FilterNew(batch, known)
	assert.Len(t, fresh, 3)
	assert.Equal(t, "New", fresh[0].Title)
	assert.Equal(t, "No id", fresh[1].Title)
	assert.Equal(t, "Blank id", fresh[2].Title)
	assert.True(t, known.Has("B"))
	assert.Equal(t, 2, known.Len())
}

func TestFilterNewNeverDeduplicatesMissingIdentifiers(t *testing.T) {
	known := NewDedupRegistry()
	batch := []Product{{ID: NoID, Title: "Same"}, {ID: NoID, Title: "Same"}}

	assert.Len(t, FilterNew(batch, known), 2)
	assert.Len(t, FilterNew(batch, known), 2)
	assert.Equal(t, 0, known.Len())
}

func TestCatalogIdentifiersIgnoresSentinels(t *testing.T) {
	cat := &Catalog{Products: []Product{{ID: "A"}, {ID: NoID}, {ID: " B "}}}

	ids := cat.Identifiers()
	assert.Equal(t, 2, ids.Len())
	assert.True(t, ids.Has("B"))
	assert.False(t, ids.Has(NoID))
}

func TestHistoryRecording(t *testing.T) {
	history := History{}
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(24 * time.Hour)

	assert.True(t, history.RecordInitial(Product{ID: "A", Title: "Tapsin", Price: "$1.000"}, t0))
	assert.False(t, history.RecordInitial(Product{ID: "A", Title: "Tapsin", Price: "$9.000"}, t1))
	assert.False(t, history.RecordInitial(Product{ID: NoID, Title: "Ghost"}, t0))

	history.RecordChange("A", "Tapsin", "$1.000", "$1.200", t0, t1)
	assert.Equal(t, 1, history.ChangeCount("A"))
	assert.Equal(t, "$1.000", history["A"].Prices[1].PreviousPrice)

	// A product without a series is seeded with its previous price
	history.RecordChange("B", "Aspirina", "$2.000", "$1.800", t0, t1)
	assert.Len(t, history["B"].Prices, 2)
	assert.True(t, history["B"].Prices[0].IsInitial)
	assert.True(t, history["B"].Prices[0].Timestamp.Equal(t0))
	assert.Equal(t, 1, history.ChangeCount("B"))
	assert.Equal(t, 0, history.ChangeCount("missing"))
}
