package sizing

import "fmt"

const (
	hoursPerYearThousands = 8.76 // 8760 h / 1000 kWh per MWh
	btuHrPerCoolingTon    = 12000.0
)

// PhysicalFootprint aggregates datacenter resources for one scenario.
// HeatBTUHr and CoolingTons are nil when the server does not declare heat output.
type PhysicalFootprint struct {
	Nodes           int      `json:"nodes"`
	ComputePowerKW  float64  `json:"compute_power_kw"`
	StoragePowerKW  float64  `json:"storage_power_kw"`
	PowerKW         float64  `json:"power_kw"`
	ComputeRackU    int      `json:"compute_rack_u"`
	StorageRackU    int      `json:"storage_rack_u"`
	RackUnits       int      `json:"rack_units"`
	AnnualEnergyMWh float64  `json:"annual_energy_mwh"`
	HeatBTUHr       *float64 `json:"heat_btu_hr,omitempty"`
	CoolingTons     *float64 `json:"cooling_tons,omitempty"`
}

// AggregatePhysical sums power, rack space and heat for nodes servers plus
// the storage system. It raises no alerts.
func AggregatePhysical(server ServerSpec, profile StorageProfile, nodes int) PhysicalFootprint {
	f := PhysicalFootprint{
		Nodes:          nodes,
		ComputePowerKW: float64(nodes) * server.MaxPowerKW,
		StoragePowerKW: profile.PowerKW,
		ComputeRackU:   nodes * server.RackUnits,
		StorageRackU:   profile.RackUnits,
	}
	f.PowerKW = f.ComputePowerKW + f.StoragePowerKW
	f.RackUnits = f.ComputeRackU + f.StorageRackU
	f.AnnualEnergyMWh = f.PowerKW * hoursPerYearThousands
	if server.HeatOutputBTUHr != nil {
		heat := float64(nodes) * *server.HeatOutputBTUHr
		tons := heat / btuHrPerCoolingTon
		f.HeatBTUHr, f.CoolingTons = &heat, &tons
	}
	return f
}

func (f PhysicalFootprint) rationale(server ServerSpec, profile StorageProfile) Rationale {
	return Rationale{
		Name:    "physical",
		Formula: "power = nodes × max_power_kw + storage_kw; rack = nodes × U + storage_U; MWh/yr = kW × 8.76",
		Inputs: map[string]any{
			"nodes":            f.Nodes,
			"max_power_kw":     server.MaxPowerKW,
			"rack_units_u":     server.RackUnits,
			"storage_power_kw": profile.PowerKW,
			"storage_rack_u":   profile.RackUnits,
		},
		Explanation: fmt.Sprintf("%d × %s plus storage %s", f.Nodes, server.Name, profile.Name),
	}
}
