package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegionCandidates(t *testing.T) {
	tests := []struct {
		name   string
		region string
		want   []string
	}{
		{"country name", "Sri Lanka", []string{"Sri Lanka", "LKA"}},
		{"alias", "usa", []string{"usa", "USA"}},
		{"world alias", "world", []string{"world", "WLD"}},
		{"iso3 already", "LKA", []string{"LKA"}},
		{"lowercase iso3", "ind", []string{"ind", "IND"}},
		{"unknown alpha3", "xyz", []string{"xyz", "XYZ"}},
		{"unknown name", "Atlantis", []string{"Atlantis"}},
		{"padded", "  India ", []string{"India", "IND"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RegionCandidates(tt.region))
		})
	}
}

func TestISOResolution(t *testing.T) {
	assert.Equal(t, "LKA", ISO3("sri lanka"))
	assert.Equal(t, "GBR", ISO3("UK"))
	assert.Equal(t, "DEU", ISO3("de"))
	assert.Equal(t, "WLD", ISO3("Global"))
	assert.Equal(t, "", ISO3("Narnia"))

	assert.Equal(t, "LK", ISO2("Sri Lanka"))
	assert.Equal(t, "US", ISO2("USA"))
	assert.Equal(t, "Narnia", ISO2(" Narnia "))
	assert.True(t, IsWorld("world"))
	assert.False(t, IsWorld("India"))
}

func TestDiseaseCategory(t *testing.T) {
	tests := []struct {
		in     string
		want   Category
		wantOK bool
	}{
		{"COVID-19", Covid, true},
		{"covid 19 cases", Covid, true},
		{"Coronavirus", Covid, true},
		{"Dengue fever", Dengue, true},
		{"Flu", Influenza, true},
		{"influenza A", Influenza, true},
		{"malaria", Malaria, true},
		{"TB", Tuberculosis, true},
		{"drug-resistant tb", Tuberculosis, true},
		{"measles", Measles, true},
		{"diabetes", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := DiseaseCategory(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLiveTrackable(t *testing.T) {
	assert.True(t, LiveTrackable(Covid))
	assert.False(t, LiveTrackable(Dengue))
	assert.Contains(t, Terms(Influenza), "flu")
	assert.Equal(t, Covid, Categories()[0])
}
