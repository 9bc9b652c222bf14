package instrument

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML fills fields missing from the document with the defaults
// of New, so an omitted macro loop stays at -1 rather than 0.
func (ins *Instrument) UnmarshalYAML(node *yaml.Node) error {
	type plain Instrument

	def := New("")
	if err := node.Decode((*plain)(def)); err != nil {
		return err
	}
	*ins = *def
	return nil
}

func checkRange(field string, v, limit uint8) error {
	if v > limit {
		return fmt.Errorf("%s %d out of range 0-%d", field, v, limit)
	}
	return nil
}

func (op Operator) validate(name string) error {
	checks := []struct {
		field string
		v     uint8
		limit uint8
	}{
		{"mult", op.Mult, 15},
		{"ksl", op.KSL, 3},
		{"tl", op.TL, 63},
		{"wave", op.Wave, 1},
		{"ar", op.AR, 15},
		{"dr", op.DR, 15},
		{"sl", op.SL, 15},
		{"rr", op.RR, 15},
	}
	for _, c := range checks {
		if err := checkRange(name+"."+c.field, c.v, c.limit); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every field fits the register it is written to.
func (ins *Instrument) Validate() error {
	if err := ins.FM.Mod.validate("mod"); err != nil {
		return fmt.Errorf("instrument %q: %w", ins.Name, err)
	}
	if err := ins.FM.Car.validate("car"); err != nil {
		return fmt.Errorf("instrument %q: %w", ins.Name, err)
	}
	if err := checkRange("fb", ins.FM.FB, 7); err != nil {
		return fmt.Errorf("instrument %q: %w", ins.Name, err)
	}
	if ins.FM.Preset < 0 || ins.FM.Preset > PresetDrums {
		return fmt.Errorf("instrument %q: preset %d out of range 0-%d", ins.Name, ins.FM.Preset, PresetDrums)
	}
	return nil
}
