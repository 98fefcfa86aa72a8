package parser

import (
	"strings"
)

var stateAbbreviations = map[string]string{
	"AL": "ALABAMA", "AK": "ALASKA", "AZ": "ARIZONA", "AR": "ARKANSAS",
	"CA": "CALIFORNIA", "CO": "COLORADO", "CT": "CONNECTICUT", "DE": "DELAWARE",
	"FL": "FLORIDA", "GA": "GEORGIA", "HI": "HAWAII", "ID": "IDAHO",
	"IL": "ILLINOIS", "IN": "INDIANA", "IA": "IOWA", "KS": "KANSAS",
	"KY": "KENTUCKY", "LA": "LOUISIANA", "ME": "MAINE", "MD": "MARYLAND",
	"MA": "MASSACHUSETTS", "MI": "MICHIGAN", "MN": "MINNESOTA", "MS": "MISSISSIPPI",
	"MO": "MISSOURI", "MT": "MONTANA", "NE": "NEBRASKA", "NV": "NEVADA",
	"NH": "NEW HAMPSHIRE", "NJ": "NEW JERSEY", "NM": "NEW MEXICO", "NY": "NEW YORK",
	"NC": "NORTH CAROLINA", "ND": "NORTH DAKOTA", "OH": "OHIO", "OK": "OKLAHOMA",
	"OR": "OREGON", "PA": "PENNSYLVANIA", "RI": "RHODE ISLAND", "SC": "SOUTH CAROLINA",
	"SD": "SOUTH DAKOTA", "TN": "TENNESSEE", "TX": "TEXAS", "UT": "UTAH",
	"VT": "VERMONT", "VA": "VIRGINIA", "WA": "WASHINGTON", "WV": "WEST VIRGINIA",
	"WI": "WISCONSIN", "WY": "WYOMING",
	"DC": "DISTRICT OF COLUMBIA", "PR": "PUERTO RICO", "GU": "GUAM",
	"VI": "VIRGIN ISLANDS", "AS": "AMERICAN SAMOA", "MP": "NORTHERN MARIANA ISLANDS",
}

// NormalizeLocation splits a free-text "City, State" string into an
// uppercased city and a full state name. A lone part becomes the city with
// no state; an unrecognized state token is kept uppercased as-is so
// already-full state names pass through. Malformed input degrades to
// partial results, never an error.
func NormalizeLocation(location string) (city string, state string) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", ""
	}

	parts := strings.Split(location, ",")
	city = strings.ToUpper(strings.TrimSpace(parts[0]))
	if len(parts) < 2 {
		return city, ""
	}

	token := strings.ToUpper(strings.TrimSpace(parts[len(parts)-1]))
	if token == "" {
		return city, ""
	}

	abbrev := token
	if len(abbrev) > 2 {
		abbrev = abbrev[:2]
	}
	if full, ok := stateAbbreviations[abbrev]; ok {
		return city, full
	}
	return city, token
}
