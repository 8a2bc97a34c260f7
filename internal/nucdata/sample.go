package nucdata

const (
	minute = 60.0
	hour   = 60 * minute
	day    = 24 * hour
	year   = 365.2422 * day
)

// Sample returns a small built-in dataset covering the Rn-222 series down to
// Pb-206 and a few common single and branching decays. Half-lives and
// branching fractions follow ICRP-107; minor branches are folded so every
// parent sums to exactly one.
func Sample() *Table {
	t, err := NewTable("sample",
		NewUnstable("Rn-222", 3.8235*day, Branch{"Po-218", 1.0, "α"}),
		NewUnstable("Po-218", 3.098*minute,
			Branch{"Pb-214", 0.9998, "α"},
			Branch{"At-218", 0.0002, "β-"},
		),
		NewUnstable("At-218", 1.5,
			Branch{"Bi-214", 0.999, "α"},
			Branch{"Rn-218", 0.001, "β-"},
		),
		NewUnstable("Rn-218", 35e-3, Branch{"Po-214", 1.0, "α"}),
		NewUnstable("Pb-214", 26.8*minute, Branch{"Bi-214", 1.0, "β-"}),
		NewUnstable("Bi-214", 19.9*minute,
			Branch{"Po-214", 0.99979, "β-"},
			Branch{"Tl-210", 0.00021, "α"},
		),
		NewUnstable("Po-214", 164.3e-6, Branch{"Pb-210", 1.0, "α"}),
		NewUnstable("Tl-210", 1.30*minute, Branch{"Pb-210", 1.0, "β-"}),
		NewUnstable("Pb-210", 22.20*year, Branch{"Bi-210", 1.0, "β-"}),
		NewUnstable("Bi-210", 5.012*day,
			Branch{"Po-210", 0.99999868, "β-"},
			Branch{"Tl-206", 0.00000132, "α"},
		),
		NewUnstable("Po-210", 138.376*day, Branch{"Pb-206", 1.0, "α"}),
		NewUnstable("Tl-206", 4.202*minute, Branch{"Pb-206", 1.0, "β-"}),
		NewStable("Pb-206"),

		NewUnstable("H-3", 12.32*year, Branch{"He-3", 1.0, "β-"}),
		NewStable("He-3"),
		NewUnstable("C-14", 5.70e3*year, Branch{"N-14", 1.0, "β-"}),
		NewStable("N-14"),
		NewUnstable("K-40", 1.248e9*year,
			Branch{"Ca-40", 0.8914, "β-"},
			Branch{"Ar-40", 0.1086, "β+ & EC"},
		),
		NewStable("Ca-40"),
		NewStable("Ar-40"),
		NewUnstable("Sr-90", 28.79*year, Branch{"Y-90", 1.0, "β-"}),
		NewUnstable("Y-90", 64.10*hour, Branch{"Zr-90", 1.0, "β-"}),
		NewStable("Zr-90"),
		NewUnstable("Cs-137", 30.1671*year,
			Branch{"Ba-137m", 0.94399, "β-"},
			Branch{"Ba-137", 0.05601, "β-"},
		),
		NewUnstable("Ba-137m", 2.552*minute, Branch{"Ba-137", 1.0, "IT"}),
		NewStable("Ba-137"),
	)
	if err != nil {
		panic(err)
	}
	return t
}
