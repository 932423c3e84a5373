package calendar

import (
	"fincal/internal/domain/calendar"
)

// Importance rules, evaluated top to bottom. House price indices are pinned to
// Medium before the generic price-index rule; otherwise High wins over the
// explicit low set, which wins over the secondary medium set. Anything else is Medium.
var importanceRules = []rule[calendar.Importance]{
	{
		name:   "house-prices",
		match:  houseprices,
		result: calendar.ImportanceMedium,
	},
	{
		name: "price-index",
		match: anyOf("inflation", "cpi", "core cpi", "consumer price", "consumer prices",
			"pce", "price index", "cpiaucsl", "cpilfesl", "pcepi"),
		result: calendar.ImportanceHigh,
	},
	{
		name: "payrolls",
		match: anyOf("nonfarm payrolls", "non farm payrolls", "payrolls", "payems",
			"employment situation", "unemployment rate", "unrate", "employment change"),
		result: calendar.ImportanceHigh,
	},
	{
		name:   "gdp",
		match:  anyOf("gdp", "gross domestic product"),
		result: calendar.ImportanceHigh,
	},
	{
		name: "policy-rate",
		match: anyOf("interest rate decision", "rate decision", "fed funds", "federal funds",
			"fedfunds", "fomc", "policy rate", "monetary policy statement", "refinancing rate"),
		result: calendar.ImportanceHigh,
	},
	{
		name:   "producer-prices",
		match:  anyOf("ppi", "producer price", "producer prices", "ppiaco"),
		result: calendar.ImportanceHigh,
	},
	{
		name:   "retail-sales",
		match:  anyOf("retail sales", "rsafs"),
		result: calendar.ImportanceHigh,
	},
	{
		name: "low-priority",
		match: anyOf("rig count", "inventories", "stocks change", "natural gas storage",
			"mba mortgage applications", "redbook", "bill auction", "wcestus1"),
		result: calendar.ImportanceLow,
	},
	{
		name: "secondary",
		match: anyOf("jobless claims", "icsa", "pmi", "ism", "consumer sentiment", "consumer confidence",
			"umcsent", "housing starts", "building permits", "home sales", "industrial production",
			"durable goods", "trade balance", "balance of trade", "treasury", "yield", "earnings"),
		result: calendar.ImportanceMedium,
	},
}

// houseprices matches residential price indices, which read like inflation prints
var houseprices = anyOf("house price", "house prices", "home price", "home prices", "case shiller",
	"fhfa", "hpi", "housing price", "property prices")

// Category rules, evaluated top to bottom; no match is General.
// Wage releases and house price indices precede the broader earnings and
// inflation phrases they contain.
var categoryRules = []rule[calendar.Category]{
	{
		name: "wages",
		match: anyOf("hourly earnings", "weekly earnings", "average earnings", "earnings growth",
			"wage", "wages", "wage growth", "labor cost", "labour cost", "unit labor costs"),
		result: calendar.CategoryEmployment,
	},
	{
		name:   "house-prices",
		match:  houseprices,
		result: calendar.CategoryHousing,
	},
	{
		name:   "earnings",
		match:  anyOf("earnings", "eps", "quarterly results"),
		result: calendar.CategoryEarnings,
	},
	{
		name: "inflation",
		match: anyOf("inflation", "cpi", "core cpi", "consumer price", "consumer prices", "pce",
			"price index", "ppi", "producer price", "producer prices",
			"cpiaucsl", "cpilfesl", "pcepi", "ppiaco"),
		result: calendar.CategoryInflation,
	},
	{
		name: "employment",
		match: anyOf("payrolls", "employment", "unemployment", "jobless", "claims", "jobs",
			"labor", "labour", "adp", "payems", "unrate", "icsa", "jolts"),
		result: calendar.CategoryEmployment,
	},
	{
		name: "monetary-policy",
		match: anyOf("interest rate", "rate decision", "fed funds", "federal funds", "fedfunds",
			"fomc", "policy rate", "central bank", "monetary", "refinancing rate"),
		result: calendar.CategoryMonetaryPolicy,
	},
	{
		name: "growth",
		match: anyOf("gdp", "gross domestic", "industrial production", "indpro", "pmi", "ism",
			"manufacturing", "durable goods", "factory orders", "capacity utilization"),
		result: calendar.CategoryGrowth,
	},
	{
		name: "consumption",
		match: anyOf("retail sales", "rsafs", "consumer sentiment", "consumer confidence", "umcsent",
			"personal spending", "personal income", "consumer credit"),
		result: calendar.CategoryConsumption,
	},
	{
		name: "housing",
		match: anyOf("housing", "home sales", "building permits", "mortgage", "construction spending",
			"houst"),
		result: calendar.CategoryHousing,
	},
	{
		name: "trade",
		match: anyOf("trade balance", "balance of trade", "exports", "imports", "current account",
			"bopgstb"),
		result: calendar.CategoryTrade,
	},
	{
		name: "capital-markets",
		match: anyOf("treasury", "yield", "bond", "auction", "note", "dgs10", "10y",
			"government bond"),
		result: calendar.CategoryCapitalMarkets,
	},
	{
		name: "energy",
		match: anyOf("crude", "oil", "natural gas", "rig count", "gasoline", "distillate",
			"wcestus1"),
		result: calendar.CategoryEnergy,
	},
}

// defaultTranslations maps lower-cased provider titles to display titles.
// A file passed to LoadTranslations is merged over these.
var defaultTranslations = map[string]string{
	"inflation rate yoy":               "CPI (YoY)",
	"inflation rate mom":               "CPI (MoM)",
	"core inflation rate yoy":          "Core CPI (YoY)",
	"core inflation rate mom":          "Core CPI (MoM)",
	"cpiaucsl":                         "Consumer Price Index",
	"pce price index yoy":              "PCE Price Index (YoY)",
	"core pce price index yoy":         "Core PCE Price Index (YoY)",
	"ppi yoy":                          "PPI (YoY)",
	"ppi mom":                          "PPI (MoM)",
	"non farm payrolls":                "Nonfarm Payrolls",
	"adp employment change":            "ADP Employment Change",
	"initial jobless claims":           "Initial Jobless Claims",
	"unemployment rate":                "Unemployment Rate",
	"gdp growth rate qoq":              "GDP Growth (QoQ)",
	"gdp growth rate qoq adv":          "GDP Growth (QoQ, Advance)",
	"gdp growth rate qoq final":        "GDP Growth (QoQ, Final)",
	"fed interest rate decision":       "Fed Interest Rate Decision",
	"interest rate decision":           "Interest Rate Decision",
	"fomc minutes":                     "FOMC Minutes",
	"retail sales mom":                 "Retail Sales (MoM)",
	"retail sales ex autos mom":        "Core Retail Sales (MoM)",
	"michigan consumer sentiment prel": "Michigan Consumer Sentiment (Prelim)",
	"ism manufacturing pmi":            "ISM Manufacturing PMI",
	"ism services pmi":                 "ISM Services PMI",
	"eia crude oil stocks change":      "Crude Oil Inventories",
	"baker hughes oil rig count":       "Oil Rig Count",
}
