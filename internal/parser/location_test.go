package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLocationCityAndState(t *testing.T) {
	city, state := NormalizeLocation("Austin, TX")
	assert.Equal(t, "AUSTIN", city)
	assert.Equal(t, "TEXAS", state)

	city, state = NormalizeLocation("Seattle, WA")
	assert.Equal(t, "SEATTLE", city)
	assert.Equal(t, "WASHINGTON", state)
}

func TestNormalizeLocationSinglePart(t *testing.T) {
	city, state := NormalizeLocation("Remote")
	assert.Equal(t, "REMOTE", city)
	assert.Equal(t, "", state)
}

func TestNormalizeLocationEmpty(t *testing.T) {
	city, state := NormalizeLocation("")
	assert.Equal(t, "", city)
	assert.Equal(t, "", state)

	city, state = NormalizeLocation("   ")
	assert.Equal(t, "", city)
	assert.Equal(t, "", state)
}

func TestNormalizeLocationUnknownStateTokenKeptRaw(t *testing.T) {
	city, state := NormalizeLocation("Austin, Texas")
	assert.Equal(t, "AUSTIN", city)
	assert.Equal(t, "TEXAS", state)

	city, state = NormalizeLocation("Somewhere, ZZ")
	assert.Equal(t, "SOMEWHERE", city)
	assert.Equal(t, "ZZ", state)
}

func TestNormalizeLocationExtraCommasUseLastPart(t *testing.T) {
	city, state := NormalizeLocation("Brooklyn, New York City, NY")
	assert.Equal(t, "BROOKLYN", city)
	assert.Equal(t, "NEW YORK", state)
}

func TestNormalizeLocationTerritories(t *testing.T) {
	_, state := NormalizeLocation("San Juan, PR")
	assert.Equal(t, "PUERTO RICO", state)

	_, state = NormalizeLocation("Washington, DC")
	assert.Equal(t, "DISTRICT OF COLUMBIA", state)
}
