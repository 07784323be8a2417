package fee

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testSchedule = Schedule{
	Base:          10_000_000,
	RevokeMint:    1_000_000,
	RevokeFreeze:  2_000_000,
	CustomCreator: 3_000_000,
	Vanity:        4_000_000,
}

func TestTotalIsPure(t *testing.T) {
	f := Features{RevokeMint: true, Vanity: true}
	first := Total(f, testSchedule)
	second := Total(f, testSchedule)
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(15_000_000), first)
}

func TestTotalToggleSingleFeature(t *testing.T) {
	base := Total(Features{}, testSchedule)
	assert.Equal(t, testSchedule.Base, base)

	tests := []struct {
		name string
		f    Features
		want uint64
	}{
		{"revoke mint", Features{RevokeMint: true}, testSchedule.RevokeMint},
		{"revoke freeze", Features{RevokeFreeze: true}, testSchedule.RevokeFreeze},
		{"custom creator", Features{CustomCreator: true}, testSchedule.CustomCreator},
		{"vanity", Features{Vanity: true}, testSchedule.Vanity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Total(tt.f, testSchedule)-base)
		})
	}
}

func TestTotalAllFeatures(t *testing.T) {
	all := Features{RevokeMint: true, RevokeFreeze: true, CustomCreator: true, Vanity: true}
	assert.Equal(t, uint64(20_000_000), Total(all, testSchedule))
	assert.Equal(t, uint64(0), Total(all, Schedule{}))
	assert.True(t, Schedule{}.IsZero())
	assert.False(t, testSchedule.IsZero())
}

func TestCalculateBreakdown(t *testing.T) {
	b := Calculate(Features{RevokeFreeze: true}, testSchedule)
	assert.Equal(t, Breakdown{Base: 10_000_000, RevokeFreeze: 2_000_000}, b)
	assert.Equal(t, uint64(12_000_000), b.Total())
}
