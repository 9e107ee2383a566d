package goquery

import (
	"slices"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/medprice"
)

// Selectors holds the CSS selectors that locate product fields on one
// vendor's pages. Each field may list several comma-separated selectors;
// the first match wins. Empty fields are skipped.
type Selectors struct {
	Name         string
	Price        string
	Composition  string
	Manufacturer string
	PackSize     string
	OutOfStock   string
}

// Extract reads a record from doc. It returns nil when the name or price
// selectors match nothing.
func (s Selectors) Extract(doc *goquery.Document) *medprice.Record {
	name := s.first(doc, s.Name)
	price, ok := medprice.ParsePrice(s.first(doc, s.Price))
	if name == "" || !ok {
		return nil
	}

	rec := &medprice.Record{
		Name:         name,
		Price:        price,
		Composition:  s.first(doc, s.Composition),
		Manufacturer: s.first(doc, s.Manufacturer),
		PackSize:     s.first(doc, s.PackSize),
	}
	if s.OutOfStock != "" {
		inStock := doc.Find(s.OutOfStock).Length() == 0
		rec.InStock = &inStock
	}
	return rec
}

func (s Selectors) first(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return text(doc.Find(selector).First())
}

// Registry maps vendors to the selectors for their product pages.
type Registry struct {
	selectors map[medprice.Vendor]Selectors
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{selectors: make(map[medprice.Vendor]Selectors)}
}

// DefaultRegistry returns a Registry with selectors for the known pharmacies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(medprice.Vendor1mg, Selectors{
		Name:         `h1[class*="DrugHeader__title"], h1[class*="ProductTitle"]`,
		Price:        `[class*="DrugPriceBox__best-price"], [class*="PriceBoxPlanOption__offer-price"], [class*="DrugPriceBox__price"]`,
		Composition:  `[class*="saltInfo"] a, [class*="DrugHeader__meta-value"] a[href*="/generics/"]`,
		Manufacturer: `[class*="DrugHeader__meta-value"] a[href*="/manufacturers/"]`,
		PackSize:     `[class*="DrugPriceBox__quantity"], [class*="PackSizeLabel"]`,
		OutOfStock:   `[class*="OutOfStock"], [class*="out-of-stock"]`,
	})
	r.Register(medprice.VendorPharmEasy, Selectors{
		Name:         `h1[class*="MedicineOverviewSection_medicineName"], h1[class*="ProductTitle"]`,
		Price:        `[class*="PriceInfo_ourPrice"], [class*="ProductPriceContainer_mrp"]`,
		Composition:  `[class*="MedicineOverviewSection_compositionName"], [class*="ProductDescription_composition"]`,
		Manufacturer: `[class*="MedicineOverviewSection_brandName"]`,
		PackSize:     `[class*="MedicineOverviewSection_measurementUnit"]`,
		OutOfStock:   `[class*="OutOfStock"]`,
	})
	r.Register(medprice.VendorNetmeds, Selectors{
		Name:         `h1.black-txt, h1[class*="product-title"]`,
		Price:        `.final-price, span.price`,
		Composition:  `.drug-manu a[href*="generic"], .drug-conf`,
		Manufacturer: `.drug-manu a[href*="manufacturer"]`,
		PackSize:     `.drug-varient, .pack-size`,
		OutOfStock:   `.out-of-stock, .outofstock`,
	})
	r.Register(medprice.VendorApollo, Selectors{
		Name:         `h1[class*="PdpHeader_productName"], h1[class*="ProductName"]`,
		Price:        `[class*="PdpPriceDetails_price"], [class*="ProductPrice"]`,
		Composition:  `[class*="PdpComposition"], [class*="Composition_value"]`,
		Manufacturer: `[class*="PdpManufacturer"], [class*="Manufacturer_value"]`,
		PackSize:     `[class*="PdpPackSize"], [class*="PackSize"]`,
		OutOfStock:   `[class*="OutOfStock"], [class*="NotifyMe"]`,
	})
	return r
}

// Get returns the selectors registered for vendor.
func (r *Registry) Get(vendor medprice.Vendor) (Selectors, bool) {
	s, ok := r.selectors[vendor]
	return s, ok
}

// Register adds selectors for a vendor, replacing any existing ones.
func (r *Registry) Register(vendor medprice.Vendor, s Selectors) {
	r.selectors[vendor] = s
}

// List returns all registered vendors in sorted order.
func (r *Registry) List() []medprice.Vendor {
	vendors := make([]medprice.Vendor, 0, len(r.selectors))
	for v := range r.selectors {
		vendors = append(vendors, v)
	}
	slices.Sort(vendors)
	return vendors
}
