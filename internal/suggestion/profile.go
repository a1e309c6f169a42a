package suggestion

import "audite/internal/model"

const highConsumptionThreshold = 1000

type flag struct {
	name  string
	words []string
}

var (
	renewableWords  = normalizeAll([]string{"solar", "eolica", "renovable", "renewable", "wind"})
	monitoringWords = normalizeAll([]string{"monitoreo", "monitoring", "medidor inteligente", "smart meter", "submetering"})

	sectorFlags = map[model.Sector][]flag{
		model.SectorIndustrial: {
			{"heavyMachinery", normalizeAll([]string{"maquinaria", "industrial", "machinery"})},
			{"continuousProcesses", normalizeAll([]string{"24/7", "continuo", "continuous"})},
			{"steam", normalizeAll([]string{"vapor", "caldera", "steam", "boiler"})},
		},
		model.SectorAgricultural: {
			{"irrigation", normalizeAll([]string{"riego", "irrigacion", "irrigation"})},
			{"refrigeration", normalizeAll([]string{"refrigeracion", "frio", "refrigeration", "cold"})},
			{"pumping", normalizeAll([]string{"bomba", "pozo", "pump"})},
		},
	}
)

// BuildProfile derives coarse flags from the answers. Sectors without
// specific flags get an empty SectorFlags map.
func BuildProfile(sector model.Sector, answers model.AnswerMap) model.Profile {
	p := model.Profile{
		HighConsumption: anyExceeds(answers, highConsumptionThreshold),
		HasRenewables:   anyContains(answers, renewableWords),
		NeedsMonitoring: !anyContains(answers, monitoringWords),
		SectorFlags:     make(map[string]bool),
	}
	for _, f := range sectorFlags[sector] {
		p.SectorFlags[f.name] = anyContains(answers, f.words)
	}
	return p
}
