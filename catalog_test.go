package medprice_test

import (
	"testing"

	"github.com/fwojciec/medprice"
	"github.com/stretchr/testify/assert"
)

func TestParsePackSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 15, medprice.ParsePackSize("strip of 15 tablets"))
	assert.Equal(t, 100, medprice.ParsePackSize("100ml bottle"))
	assert.Equal(t, medprice.DefaultPackSize, medprice.ParsePackSize("strip"))
	assert.Equal(t, medprice.DefaultPackSize, medprice.ParsePackSize(""))
	assert.Equal(t, medprice.DefaultPackSize, medprice.ParsePackSize("0 tablets"))
}

func TestBaseSalt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Paracetamol", medprice.BaseSalt("Paracetamol (650mg)"))
	assert.Equal(t, "Paracetamol", medprice.BaseSalt("Paracetamol 500mg + Caffeine 30mg"))
	assert.Equal(t, "Amoxycillin", medprice.BaseSalt("Amoxycillin/Clavulanic Acid"))
	assert.Empty(t, medprice.BaseSalt(""))
	assert.Empty(t, medprice.BaseSalt("(650mg)"))
}

func TestPriceQuote_Validate(t *testing.T) {
	t.Parallel()

	valid := medprice.PriceQuote{EntryID: "e1", Vendor: medprice.Vendor1mg, Price: 30}
	assert.NoError(t, valid.Validate())

	noEntry := valid
	noEntry.EntryID = ""
	assert.Equal(t, medprice.EINVALID, medprice.ErrorCode(noEntry.Validate()))

	noVendor := valid
	noVendor.Vendor = ""
	assert.Equal(t, medprice.EINVALID, medprice.ErrorCode(noVendor.Validate()))

	zeroPrice := valid
	zeroPrice.Price = 0
	assert.Equal(t, medprice.EINVALID, medprice.ErrorCode(zeroPrice.Validate()))
}

func TestEntryCandidate_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, (&medprice.EntryCandidate{Name: "Dolo"}).Validate())
	assert.Equal(t, medprice.EINVALID, medprice.ErrorCode((&medprice.EntryCandidate{Name: " "}).Validate()))
}

func TestMatch_LowestPrice(t *testing.T) {
	t.Parallel()

	m := &medprice.Match{Quotes: []*medprice.PriceQuote{{Price: 32}, {Price: 28.5}, {Price: 30}}}
	assert.InDelta(t, 28.5, m.LowestPrice(), 0.001)
	assert.Zero(t, (&medprice.Match{}).LowestPrice())
}

func TestPriceQuote_Hash(t *testing.T) {
	t.Parallel()

	q := medprice.PriceQuote{EntryID: "e1", Vendor: medprice.Vendor1mg, Price: 30, URL: "https://1mg.com/a", InStock: true}
	same := q
	same.EntryID = "e2"
	changed := q
	changed.Price = 31

	assert.Len(t, q.Hash(), 16)
	assert.Equal(t, q.Hash(), same.Hash())
	assert.NotEqual(t, q.Hash(), changed.Hash())
}

func TestParseStrength(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "650mg", medprice.ParseStrength("Paracetamol (650 mg)"))
	assert.Equal(t, "0.5mg", medprice.ParseStrength("Alprazolam 0.5mg"))
	assert.Empty(t, medprice.ParseStrength("Paracetamol"))
}
