package scenario

// Info describes a scenario for operator-facing listings.
type Info struct {
	Name        Name   `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Catalog returns the built-in training scenarios in presentation order.
func Catalog() []Info {
	return []Info{
		{
			Name:        Nominal,
			Title:       Nominal.Title(),
			Description: "Descend to the survey site, locate a bioluminescent organism, collect a sample and return to the surface.",
		},
		{
			Name:        PressureAnomaly,
			Title:       PressureAnomaly.Title(),
			Description: "The descent controller overshoots the rated depth. Halt propulsion before the hull pressure escalates to a breach.",
		},
		{
			Name:        PowerFault,
			Title:       PowerFault.Title(),
			Description: "A power system fault drains the battery while searching. Jettison the science package to stabilise power and ascend.",
		},
	}
}
