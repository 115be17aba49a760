package cbc

// RequiredColumns is the canonical property vocabulary every reconstructed
// sample row carries, present or not.
var RequiredColumns = []string{
	"Mineralen delen ten opzichte DS",
	"Zand (63um < fractie < 2mm)",
	"(250um < fractie < 2mm)",
	"(63um < fractie < 250um)",
	"Silt (2um < fractie < 63um)",
	"(20 < fractie < 63um)",
	"Leemfractie (fractie < 10um)",
	"Lutum (fractie < 2um)",
	"Leem (lutum+silt)",
	"Korrelverdeling (D60/D10)",
	"Korrelverdeling (M50)",
	"Gehalte organische koolstof (TOC)",
	"Gehalte organische stof",
	"Kalk (CaCO3)",
	"pH-waarde",
	"Grof materiaal (fractie)",
	"Bodemvreemd",
	"Fosfor totaal (destructie)",
	"Fosfor beschikbaar",
	"Stikstof totaal (N-Kjeldahl)",
	"Ammonium totaal",
	"Stikstof levering",
	"C/N verhouding",
	"Zwavel totaal",
	"Zwavel beschikbaar",
	"Kalium totaal",
	"Kalium beschikbaar",
	"Koper totaal",
	"Zink totaal",
}

// DefaultGlobalMappings are the lab labels known to supply a canonical
// property. Several labels may feed the same property; the first one present
// in a sample is used.
var DefaultGlobalMappings = []Mapping{
	// carbon and organic matter
	{Source: "Anorg. koolstof (CaCO3) (% (m/m) ds)", Target: "Kalk (CaCO3)"},
	{Source: "Anorganisch koolstof (als C) (g/kg ds)", Target: "Kalk (CaCO3)"},
	{Source: "C-anorganisch (%)", Target: "Kalk (CaCO3)"},
	{Source: "Koolzure kalk (%)", Target: "Kalk (CaCO3)"},
	{Source: "C-organisch (%)", Target: "Gehalte organische koolstof (TOC)"},
	{Source: "Organische stof (% (m/m) ds)", Target: "Gehalte organische stof"},
	{Source: "Organische stof (%)", Target: "Gehalte organische stof"},

	// nutrients
	{Source: "N-totale bodemvoorraad (mg N/kg)", Target: "Stikstof totaal (N-Kjeldahl)"},
	{Source: "S-totale bodemvoorraad (mg S/kg)", Target: "Zwavel totaal"},
	{Source: "S-plantbeschikbaar (mg S/kg)", Target: "Zwavel beschikbaar"},
	{Source: "P-bodemvoorraad (mg P/100 g)", Target: "Fosfor totaal (destructie)"},
	{Source: "P-bodemvoorraad (mg P2O5/100 g)", Target: "Fosfor totaal (destructie)"},
	{Source: "P-plantbeschikbaar (mg P/kg)", Target: "Fosfor beschikbaar"},
	{Source: "K-bodemvoorraad (mmol+/kg)", Target: "Kalium totaal"},
	{Source: "K-plantbeschikbaar (mg K/kg)", Target: "Kalium beschikbaar"},
	{Source: "Ca-bodemvoorraad (mmol+/kg)", Target: "Calcium totaal"},
	{Source: "Mg-bodemvoorraad (mmol+/kg)", Target: "Magnesium totaal"},

	// pH
	{Source: "Zuurgraad (pH)", Target: "pH-waarde"},
	{Source: "Zuurgraad (pH-CaCl2) (pH unit)", Target: "pH-waarde"},

	// texture
	{Source: "Klei (<2 µm) (%)", Target: "Lutum (fractie < 2um)"},
	{Source: "Korrelgrootte < 2 µm, gravimetrisch (% (m/m) ds)", Target: "Lutum (fractie < 2um)"},
	{Source: "Korrelgrootte < 2 µm, laser (% min. delen)", Target: "Lutum (fractie < 2um)"},
	{Source: "Silt (2-50 µm) (%)", Target: "Silt (2um < fractie < 63um)"},
	{Source: "Zand (>50 µm) (%)", Target: "Zand (63um < fractie < 2mm)"},
	{Source: "Korrelgrootte < 63 µm (% (m/m) ds)", Target: "(63um < fractie < 250um)"},

	// metals
	{Source: "Koper (Cu) (mg/kg ds)", Target: "Koper totaal"},
	{Source: "Zink (Zn) (mg/kg ds)", Target: "Zink totaal"},
}
