package medprice

import (
	"net/url"
	"strings"
)

// Vendor identifies the pharmacy a price quote was observed at.
// The set is closed: any source that is not recognized is VendorOther.
type Vendor string

// Known vendors.
const (
	Vendor1mg       Vendor = "1mg"
	VendorPharmEasy Vendor = "PharmEasy"
	VendorApollo    Vendor = "Apollo"
	VendorNetmeds   Vendor = "Netmeds"
	VendorOther     Vendor = "Other"
)

// vendorPatterns is checked in order; the first pattern found in the
// lower-cased host, or failing that the whole URL, wins.
var vendorPatterns = []struct {
	vendor   Vendor
	patterns []string
}{
	{Vendor1mg, []string{"1mg"}},
	{VendorPharmEasy, []string{"pharmeasy"}},
	{VendorApollo, []string{"apollopharmacy", "apollo"}},
	{VendorNetmeds, []string{"netmeds"}},
}

// Vendors returns every vendor in classification order, VendorOther last.
func Vendors() []Vendor {
	out := make([]Vendor, 0, len(vendorPatterns)+1)
	for _, v := range vendorPatterns {
		out = append(out, v.vendor)
	}
	return append(out, VendorOther)
}

// ClassifyVendor maps a source URL to a vendor.
func ClassifyVendor(rawURL string) Vendor {
	lower := strings.ToLower(rawURL)
	host := lower
	if u, err := url.Parse(lower); err == nil && u.Host != "" {
		host = u.Host
	}

	for _, haystack := range []string{host, lower} {
		for _, v := range vendorPatterns {
			for _, p := range v.patterns {
				if strings.Contains(haystack, p) {
					return v.vendor
				}
			}
		}
	}
	return VendorOther
}
