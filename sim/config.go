package sim

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// UnitRole selects which failure injectors a unit runs.
type UnitRole string

const (
	// RoleStandard units suffer slowdowns.
	RoleStandard UnitRole = "standard"
	// RoleFreezer units suffer coolant leaks instead of slowdowns.
	RoleFreezer UnitRole = "freezer"
)

// UnitConfig describes one piece of equipment on the line.
type UnitConfig struct {
	ID             string   `yaml:"id" validate:"required"`
	Role           UnitRole `yaml:"role,omitempty" validate:"omitempty,oneof=standard freezer"`
	Temperature    float64  `yaml:"temperature"`     // initial temperature
	SpeedThreshold float64  `yaml:"speed_threshold"` // slowdowns at or below this speed raise a Low alarm
	Downstream     string   `yaml:"downstream,omitempty"`
}

// FailureConfig groups the stochastic failure-injection parameters.
type FailureConfig struct {
	SlowdownMTTF    float64 `yaml:"slowdown_mttf" validate:"gte=0"`     // mean time between slowdowns; 0 disables
	CoolantLeakMTTF float64 `yaml:"coolant_leak_mttf" validate:"gte=0"` // mean time between coolant leaks; 0 disables
	SpeedLoss       float64 `yaml:"speed_loss"`                        // speed removed per slowdown
	SlowdownHeat    float64 `yaml:"slowdown_heat"`                     // temperature added per slowdown
	LeakTemperature float64 `yaml:"leak_temperature"`                  // freezer temperature when a leak starts
	WarmingInterval float64 `yaml:"warming_interval" validate:"gt=0"`  // period of the +1 degree warming while leaking
}

// RepairConfig groups repair durations and the state a repair restores.
type RepairConfig struct {
	RepairTime         float64 `yaml:"repair_time" validate:"gt=0"`
	ResetSpeed         float64 `yaml:"reset_speed" validate:"gt=0"`
	ResetTemperature   float64 `yaml:"reset_temperature"`
	FreezerTemperature float64 `yaml:"freezer_temperature"`
}

// SamplingConfig groups the recorder periods, in virtual minutes.
type SamplingConfig struct {
	TelemetryPeriod float64 `yaml:"telemetry_period" validate:"gt=0"`
	OEEPeriod       float64 `yaml:"oee_period" validate:"gt=0"`
}

// LineConfig is the full description of a simulated production line.
// Units are listed in physical chain order; each names at most one downstream unit.
type LineConfig struct {
	ID        string         `yaml:"id" validate:"required"`
	Speed     float64        `yaml:"speed" validate:"gt=0"`      // nominal speed of every unit
	BatchTime float64        `yaml:"batch_time" validate:"gt=0"` // time per batch at speed 1
	Horizon   float64        `yaml:"horizon" validate:"gt=0"`    // virtual minutes to simulate
	Seed      int64          `yaml:"seed"`
	Units     []UnitConfig   `yaml:"units" validate:"required,min=1,dive"`
	Failures  FailureConfig  `yaml:"failures"`
	Repair    RepairConfig   `yaml:"repair"`
	Sampling  SamplingConfig `yaml:"sampling"`
}

// Entity identifiers of the default cookie line.
const (
	CookieLineID       = "COOKIE_LINE_5ce9f1d5-61b0-433f-a850-53fa7ca27aa1"
	CookieFormerID     = "COOKIE_FORMER_19556bfd-469c-40bc-a389-dbeab255c144"
	FreezerTunnelID    = "FREEZER_TUNNEL_e12e0733-f5df-4604-8f10-417f49e6d298"
	VerticalConveyorID = "VERTICAL_CONVEYOR_d5423f7f-379c-4a97-aae0-3a5c0bcc9116"
	BoxErectorID       = "BOX_ERECTOR_142496af-df2e-490e-aed5-2580eaf75e40"
	PlasticLinerID     = "PLASTIC_LINER_a77e76bc-53f3-420d-8b2f-76103c810fac"
	ConveyorRightID    = "CONVEYOR_RIGHT_TURN_c4f2df3d-26a2-45c5-a6c9-02ca00eb4af6"
	ConveyorStraightID = "CONVEYOR_STRIGHT_9c62c546-f8ef-489d-9938-d46a12c97f32"
	ConveyorLeftID     = "CONVEYOR_LEFT_TURN_b28f2ca9-b6a7-44cd-a62d-7f76fc17ba45"
	BoxSealerID        = "BOX_SEALER_ad434a34-4363-4a36-8153-20bd7189951d"
	LabelingBeltID     = "LABELING_BELT_5f98ffd2-ced1-48dd-a111-e3503b4e8532"
)

// DefaultLineConfig returns the ten-unit cookie line. The box-erector branch
// and the freezer branch reconverge at the straight conveyor.
func DefaultLineConfig() LineConfig {
	unit := func(id string, temp float64, downstream string) UnitConfig {
		return UnitConfig{ID: id, Role: RoleStandard, Temperature: temp, SpeedThreshold: 3, Downstream: downstream}
	}
	freezer := unit(FreezerTunnelID, -20, VerticalConveyorID)
	freezer.Role = RoleFreezer
	return LineConfig{
		ID:        CookieLineID,
		Speed:     6,
		BatchTime: 1.5,
		Horizon:   4.05,
		Seed:      10,
		Units: []UnitConfig{
			unit(CookieFormerID, 30, FreezerTunnelID),
			freezer,
			unit(VerticalConveyorID, 30, ConveyorStraightID),
			unit(BoxErectorID, 30, PlasticLinerID),
			unit(PlasticLinerID, 30, ConveyorRightID),
			unit(ConveyorRightID, 30, ConveyorStraightID),
			unit(ConveyorStraightID, 30, ConveyorLeftID),
			unit(ConveyorLeftID, 30, BoxSealerID),
			unit(BoxSealerID, 30, LabelingBeltID),
			unit(LabelingBeltID, 30, ""),
		},
		Failures: FailureConfig{
			SlowdownMTTF:    2,
			CoolantLeakMTTF: 3,
			SpeedLoss:       2,
			SlowdownHeat:    3,
			LeakTemperature: -10,
			WarmingInterval: 0.05,
		},
		Repair: RepairConfig{
			RepairTime:         0.5,
			ResetSpeed:         6,
			ResetTemperature:   30,
			FreezerTemperature: -20,
		},
		Sampling: SamplingConfig{
			TelemetryPeriod: 1.0 / 6,
			OEEPeriod:       0.501,
		},
	}
}

// LoadLineConfig reads a YAML line description layered over DefaultLineConfig.
// Unknown keys are rejected so that typos surface as errors.
func LoadLineConfig(path string) (LineConfig, error) {
	cfg := DefaultLineConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading line config %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing line config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints and the line topology: unit ids are
// unique, downstream references resolve, the chain is acyclic and at most
// one freezer is designated.
func (c LineConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid line config: %w", err)
	}

	index := make(map[string]int, len(c.Units))
	freezers := 0
	for i, u := range c.Units {
		if _, dup := index[u.ID]; dup {
			return fmt.Errorf("invalid line config: duplicate unit id %q", u.ID)
		}
		index[u.ID] = i
		if u.Role == RoleFreezer {
			freezers++
		}
	}
	if freezers > 1 {
		return errors.New("invalid line config: more than one freezer unit")
	}
	for _, u := range c.Units {
		if u.Downstream == "" {
			continue
		}
		if _, ok := index[u.Downstream]; !ok {
			return fmt.Errorf("invalid line config: unit %q has unknown downstream %q", u.ID, u.Downstream)
		}
	}
	// Each unit has at most one downstream, so a walk longer than the unit
	// count can only mean a cycle.
	for _, u := range c.Units {
		cur, steps := u, 0
		for cur.Downstream != "" {
			steps++
			if steps > len(c.Units) {
				return fmt.Errorf("invalid line config: downstream cycle through %q", u.ID)
			}
			cur = c.Units[index[cur.Downstream]]
		}
	}
	return nil
}
